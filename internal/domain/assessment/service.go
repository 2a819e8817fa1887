package assessment

import (
	"context"

	"dermalens-server-go/internal/domain/model"
	"dermalens-server-go/internal/platform/errors"
	"dermalens-server-go/internal/utils"
)

// Service 组合重试调用器与结果归一化，对上层暴露两个模型操作
type Service struct {
	invoker   *Invoker
	modelName string
	logger    *utils.Logger
}

// NewService 创建评估服务实例
func NewService(invoker *Invoker, modelName string, logger *utils.Logger) (*Service, error) {
	if invoker == nil {
		return nil, errors.New(errors.KindConfig, "assessment.new", "invoker is required")
	}
	if modelName == "" {
		return nil, errors.New(errors.KindConfig, "assessment.new", "model name is required")
	}
	return &Service{
		invoker:   invoker,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// AnalyzeImage 将图片交给模型分析并归一化输出。
// 模型耗尽重试后返回 model 类错误，由调用方决定降级载荷。
func (s *Service) AnalyzeImage(ctx context.Context, mimeType string, data []byte) (Outcome, error) {
	req := model.Request{
		Model:  s.modelName,
		System: analysisSystemPrompt,
		Parts: []model.Part{
			model.MediaPart(mimeType, data),
			model.TextPart(analysisUserInstruction),
		},
	}

	result, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return ShapeAnalysis(result.Text), nil
}

// Assist 将用户提问转发给模型，返回原始文本回复（不做 JSON 解析）
func (s *Service) Assist(ctx context.Context, prompt string) (string, error) {
	req := model.Request{
		Model:  s.modelName,
		System: assistantSystemPrompt,
		Parts:  []model.Part{model.TextPart(prompt)},
	}

	result, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
