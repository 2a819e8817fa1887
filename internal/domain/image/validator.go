package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/utils"
)

// 各格式的文件头签名
var formatSignatures = map[string][][]byte{
	"jpeg": {{0xFF, 0xD8, 0xFF}},
	"png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"gif":  {[]byte("GIF87a"), []byte("GIF89a")},
	"webp": {[]byte("RIFF")},
	"bmp":  {{0x42, 0x4D}},
}

// 上传内容里不应出现的可执行文件头
var executableSignatures = [][]byte{
	{0x4D, 0x5A},             // PE
	{0x7F, 0x45, 0x4C, 0x46}, // ELF
	{0xCA, 0xFE, 0xBA, 0xBE}, // Mach-O fat
	{0xFE, 0xED, 0xFA, 0xCE}, // Mach-O 32
	{0xFE, 0xED, 0xFA, 0xCF}, // Mach-O 64
	[]byte("#!"),             // 脚本
}

// Validator 上传图片的格式与安全校验
type Validator struct {
	limits *config.UploadConfig
	logger *utils.Logger
}

// NewValidator 创建校验器
func NewValidator(limits *config.UploadConfig, logger *utils.Logger) *Validator {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Validator{limits: limits, logger: logger}
}

// Validate 对完整图片字节做格式嗅探、尺寸限制和深度扫描
func (v *Validator) Validate(data []byte, declaredFormat string) ValidationResult {
	result := ValidationResult{FileSize: int64(len(data))}

	if len(data) == 0 {
		result.Error = fmt.Errorf("empty image data")
		return result
	}
	if v.limits.MaxFileSize > 0 && result.FileSize > v.limits.MaxFileSize {
		result.Error = fmt.Errorf("image size %d exceeds limit %d", result.FileSize, v.limits.MaxFileSize)
		return result
	}

	format := v.sniffFormat(data)
	if format == "" {
		result.SecurityRisk = "unrecognized file signature"
		result.Error = fmt.Errorf("unrecognized image format")
		return result
	}
	result.Format = format

	if declaredFormat != "" && !formatsMatch(declaredFormat, format) {
		v.logger.WarnTag("分析", "图片扩展名 %s 与实际格式 %s 不符", declaredFormat, format)
	}

	if !v.formatAllowed(format) {
		result.Error = fmt.Errorf("image format %s is not allowed", format)
		return result
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.Error = fmt.Errorf("decode image header: %w", err)
		return result
	}
	result.Width = cfg.Width
	result.Height = cfg.Height

	if v.limits.MaxWidth > 0 && cfg.Width > v.limits.MaxWidth {
		result.Error = fmt.Errorf("image width %d exceeds limit %d", cfg.Width, v.limits.MaxWidth)
		return result
	}
	if v.limits.MaxHeight > 0 && cfg.Height > v.limits.MaxHeight {
		result.Error = fmt.Errorf("image height %d exceeds limit %d", cfg.Height, v.limits.MaxHeight)
		return result
	}
	if v.limits.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > v.limits.MaxPixels {
		result.Error = fmt.Errorf("image pixel count exceeds limit %d", v.limits.MaxPixels)
		return result
	}

	if v.limits.EnableDeepScan {
		if risk := scanForExecutable(data); risk != "" {
			result.SecurityRisk = risk
			result.Error = fmt.Errorf("image rejected: %s", risk)
			return result
		}
	}

	result.IsValid = true
	return result
}

func (v *Validator) sniffFormat(data []byte) string {
	for format, signatures := range formatSignatures {
		for _, sig := range signatures {
			if bytes.HasPrefix(data, sig) {
				// WEBP 的 RIFF 头还要确认子类型
				if format == "webp" {
					if len(data) < 12 || string(data[8:12]) != "WEBP" {
						continue
					}
				}
				return format
			}
		}
	}
	return ""
}

func (v *Validator) formatAllowed(format string) bool {
	if len(v.limits.AllowedFormats) == 0 {
		return true
	}
	for _, allowed := range v.limits.AllowedFormats {
		if formatsMatch(allowed, format) {
			return true
		}
	}
	return false
}

func formatsMatch(a, b string) bool {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "jpg" {
			return "jpeg"
		}
		return s
	}
	return norm(a) == norm(b)
}

// scanForExecutable 检查文件头与文件体内嵌的可执行特征
func scanForExecutable(data []byte) string {
	for _, sig := range executableSignatures {
		if bytes.HasPrefix(data, sig) {
			return "executable file header"
		}
	}
	// 图片尾部追加的 PE/ELF 也要拒绝，常见的隐写投毒手法
	if idx := bytes.Index(data, []byte{0x4D, 0x5A, 0x90, 0x00}); idx > 0 {
		return "embedded PE payload"
	}
	if idx := bytes.Index(data, []byte{0x7F, 0x45, 0x4C, 0x46}); idx > 0 {
		return "embedded ELF payload"
	}
	return ""
}
