package model

import (
	"context"
	"fmt"
	"strings"

	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/utils"
)

// NewProvider 根据配置选择模型后端
func NewProvider(ctx context.Context, cfg config.ModelConfig, logger *utils.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIProvider(cfg, logger)
	case "gemini", "":
		return newGeminiProvider(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("不支持的模型后端: %s", cfg.Provider)
	}
}
