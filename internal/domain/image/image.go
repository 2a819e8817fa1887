package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/utils"
)

// ValidationResult 校验结论与图片元信息
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	SecurityRisk string
	Error        error
}

// Input 待处理的图片流
type Input struct {
	Reader         io.Reader
	DeclaredFormat string
	Source         string
}

// Output 处理完成的产物：原始字节、base64 和校验信息
type Output struct {
	Bytes      []byte
	Base64     string
	Format     string
	MIMEType   string
	Validation ValidationResult
}

// Pipeline 流式读取、校验并编码上传的图片
type Pipeline struct {
	validator *Validator
	limits    *config.UploadConfig
	logger    *utils.Logger
}

// NewPipeline 创建图片处理管道
func NewPipeline(limits *config.UploadConfig, logger *utils.Logger) (*Pipeline, error) {
	if limits == nil {
		return nil, fmt.Errorf("upload limits are required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Pipeline{
		validator: NewValidator(limits, logger),
		limits:    limits,
		logger:    logger,
	}, nil
}

// Process 读取图片流，超限即中止，然后做安全校验并产出 base64
func (p *Pipeline) Process(ctx context.Context, input Input) (*Output, error) {
	if input.Reader == nil {
		return nil, fmt.Errorf("image reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxSize := p.limits.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}

	limited := &io.LimitedReader{R: input.Reader, N: maxSize + 1}

	rawBuf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	base64Buf := bytes.NewBuffer(make([]byte, 0, 64*1024))

	encoder := base64.NewEncoder(base64.StdEncoding, base64Buf)
	writer := io.MultiWriter(rawBuf, encoder)

	if _, err := io.Copy(writer, limited); err != nil {
		return nil, fmt.Errorf("stream image bytes: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalise base64 encoding: %w", err)
	}
	if limited.N <= 0 {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", maxSize)
	}

	raw := rawBuf.Bytes()
	validation := p.validator.Validate(raw, input.DeclaredFormat)
	if !validation.IsValid {
		if validation.Error != nil {
			return nil, validation.Error
		}
		return nil, fmt.Errorf("image validation failed")
	}

	return &Output{
		Bytes:      raw,
		Base64:     base64Buf.String(),
		Format:     validation.Format,
		MIMEType:   MIMETypeForFormat(validation.Format),
		Validation: validation,
	}, nil
}

// FormatFromFilename 根据扩展名推断图片格式，未知时默认 jpeg
func FormatFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	case ".bmp":
		return "bmp"
	default:
		return "jpeg"
	}
}

// MIMETypeForFormat 返回格式对应的 MIME 类型
func MIMETypeForFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg", "":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	default:
		return "image/" + strings.ToLower(format)
	}
}
