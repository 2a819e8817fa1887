package model

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/utils"
)

// openaiProvider 基于 OpenAI 兼容接口的多模态调用实现
type openaiProvider struct {
	client      *openai.Client
	temperature float32
	maxTokens   int
	logger      *utils.Logger
}

func newOpenAIProvider(cfg config.ModelConfig, logger *utils.Logger) (*openaiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &openaiProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// Generate 构建多模态消息并调用 Chat Completions 接口
func (p *openaiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	userMessage := openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: make([]openai.ChatMessagePart, 0, len(req.Parts)),
	}
	for _, part := range req.Parts {
		if part.Media != nil {
			// 图片以 data URL 形式内联
			userMessage.MultiContent = append(userMessage.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf(
						"data:%s;base64,%s",
						part.Media.MIMEType,
						base64.StdEncoding.EncodeToString(part.Media.Data),
					),
				},
			})
			continue
		}
		userMessage.MultiContent = append(userMessage.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: part.Text,
		})
	}
	messages = append(messages, userMessage)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		p.logger.ErrorTag("模型", "OpenAI 接口调用失败: %v", err)
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &Result{Text: resp.Choices[0].Message.Content}, nil
}
