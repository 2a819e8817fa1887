package model

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/utils"
)

// geminiProvider 基于 Google Gemini API 的多模态调用实现
type geminiProvider struct {
	client      *genai.Client
	temperature float32
	maxTokens   int32
	logger      *utils.Logger
}

func newGeminiProvider(ctx context.Context, cfg config.ModelConfig, logger *utils.Logger) (*geminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &geminiProvider{
		client:      client,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		logger:      logger,
	}, nil
}

// Generate 构建内容片段并调用 GenerateContent 接口
func (p *geminiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, part := range req.Parts {
		if part.Media != nil {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: part.Media.MIMEType,
					Data:     part.Media.Data,
				},
			})
			continue
		}
		parts = append(parts, &genai.Part{Text: part.Text})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.temperature),
	}
	if p.maxTokens > 0 {
		genConfig.MaxOutputTokens = p.maxTokens
	}
	if req.System != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		p.logger.ErrorTag("模型", "Gemini 接口调用失败: %v", err)
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text, err := extractGeminiText(resp)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}

// extractGeminiText 从响应中提取首个文本片段，同时检查异常的终止原因
func extractGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return "", fmt.Errorf("gemini generation blocked: %v", candidate.FinishReason)
	}

	if candidate.Content == nil {
		return "", nil
	}
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", nil
}
