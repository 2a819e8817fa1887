package analyze

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dermalens-server-go/internal/domain/assessment"
	"dermalens-server-go/internal/domain/eventbus"
	domainimage "dermalens-server-go/internal/domain/image"
	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/platform/errors"
	httptransport "dermalens-server-go/internal/transport/http"
	"dermalens-server-go/internal/utils"
)

// Service 模型分析与问答助手的 HTTP 传输层实现
type Service struct {
	assessor *assessment.Service
	pipeline *domainimage.Pipeline
	upload   *config.UploadConfig
	logger   *utils.Logger
}

// NewService 创建分析服务实例
func NewService(
	assessor *assessment.Service,
	pipeline *domainimage.Pipeline,
	upload *config.UploadConfig,
	logger *utils.Logger,
) (*Service, error) {
	if assessor == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "assessment service is required")
	}
	if pipeline == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "image pipeline is required")
	}
	if upload == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "upload config is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "logger is required")
	}
	return &Service{
		assessor: assessor,
		pipeline: pipeline,
		upload:   upload,
		logger:   logger,
	}, nil
}

// Register 注册模型分析相关的HTTP路由
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/assistant", s.handleAssistant)
	router.POST("/analyze-image", s.handleAnalyzeImage)

	s.logger.InfoTag("HTTP", "模型分析路由注册完成")
	return nil
}

type assistantRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Service) handleAssistant(c *gin.Context) {
	var req assistantRequest
	// body 解析失败按缺少 prompt 处理
	_ = c.ShouldBindJSON(&req)

	if strings.TrimSpace(req.Prompt) == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "Missing prompt")
		return
	}

	text, err := s.assessor.Assist(c.Request.Context(), req.Prompt)
	if err != nil {
		if errors.IsKind(err, errors.KindModel) {
			s.logger.WarnTag("助手", "模型不可用，返回降级回复: %v", err)
			eventbus.PublishAsync(eventbus.TopicModelFallback, eventbus.FallbackEvent{
				Operation: "assistant",
				Reason:    err.Error(),
			})
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "model unavailable",
				"text":    assessment.FallbackAssistantText,
			})
			return
		}
		httptransport.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "text": text})
}

func (s *Service) handleAnalyzeImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}
	defer file.Close()

	if s.upload.MaxFileSize > 0 && header.Size > s.upload.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Image exceeds %dMB limit", s.upload.MaxFileSize/1024/1024),
		})
		return
	}

	output, err := s.pipeline.Process(c.Request.Context(), domainimage.Input{
		Reader:         file,
		DeclaredFormat: domainimage.FormatFromFilename(header.Filename),
		Source:         "upload",
	})
	if err != nil {
		s.logger.WarnTag("分析", "图片处理失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	savedPath, err := s.saveUpload(output.Bytes, output.Format)
	if err != nil {
		// 落盘失败不阻断分析，只记录
		s.logger.WarnTag("分析", "图片保存失败: %v", err)
		savedPath = header.Filename
	}

	outcome, err := s.assessor.AnalyzeImage(c.Request.Context(), output.MIMEType, output.Bytes)
	if err != nil {
		if errors.IsKind(err, errors.KindModel) {
			s.logger.WarnTag("分析", "模型不可用，返回降级结果: %v", err)
			eventbus.PublishAsync(eventbus.TopicModelFallback, eventbus.FallbackEvent{
				Operation: "analyze-image",
				Reason:    err.Error(),
			})
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "model unavailable",
				"result":  assessment.FallbackAnalysis(),
			})
			return
		}
		httptransport.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.InfoTag("分析", "图片 %s 分析完成", filepath.Base(savedPath))
	c.JSON(http.StatusOK, gin.H{"success": true, "result": outcome.Payload()})
}

// saveUpload 以 uuid 文件名保存上传图片，返回落盘路径
func (s *Service) saveUpload(data []byte, format string) (string, error) {
	dir := s.upload.Dir
	if dir == "" {
		dir = filepath.Join("data", "uploads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	filename := fmt.Sprintf("%s.%s", uuid.NewString(), format)
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}
