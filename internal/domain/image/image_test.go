package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/utils"
)

func testLimits() *config.UploadConfig {
	return &config.UploadConfig{
		MaxFileSize:    1024 * 1024,
		MaxPixels:      1 << 20,
		MaxWidth:       1024,
		MaxHeight:      1024,
		AllowedFormats: []string{"jpeg", "png", "webp"},
		EnableDeepScan: true,
	}
}

func testLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPipeline_ProcessValidPNG(t *testing.T) {
	pipeline, err := NewPipeline(testLimits(), testLogger(t))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	data := encodePNG(t, 8, 8)
	out, err := pipeline.Process(context.Background(), Input{
		Reader:         bytes.NewReader(data),
		DeclaredFormat: "png",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Format != "png" {
		t.Errorf("expected png, got %s", out.Format)
	}
	if out.MIMEType != "image/png" {
		t.Errorf("unexpected MIME type %s", out.MIMEType)
	}
	if out.Validation.Width != 8 || out.Validation.Height != 8 {
		t.Errorf("unexpected dimensions %dx%d", out.Validation.Width, out.Validation.Height)
	}
	if !bytes.Equal(out.Bytes, data) {
		t.Error("raw bytes must round-trip unchanged")
	}
	if len(out.Base64) == 0 {
		t.Error("base64 output must not be empty")
	}
}

func TestPipeline_RejectsOversizedStream(t *testing.T) {
	limits := testLimits()
	limits.MaxFileSize = 64

	pipeline, err := NewPipeline(limits, testLogger(t))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, err = pipeline.Process(context.Background(), Input{
		Reader: strings.NewReader(strings.Repeat("x", 200)),
	})
	if err == nil {
		t.Fatal("expected size error")
	}
}

func TestValidator_RejectsUnknownSignature(t *testing.T) {
	v := NewValidator(testLimits(), testLogger(t))

	result := v.Validate([]byte("definitely not an image"), "")
	if result.IsValid {
		t.Fatal("expected rejection")
	}
	if result.SecurityRisk == "" {
		t.Error("expected a security risk note for unknown signature")
	}
}

func TestValidator_RejectsExecutableHeader(t *testing.T) {
	v := NewValidator(testLimits(), testLogger(t))

	// ELF 头
	result := v.Validate([]byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01}, "")
	if result.IsValid {
		t.Fatal("expected rejection of executable header")
	}
}

func TestValidator_RejectsDisallowedFormat(t *testing.T) {
	limits := testLimits()
	limits.AllowedFormats = []string{"jpeg"}
	v := NewValidator(limits, testLogger(t))

	result := v.Validate(encodePNG(t, 4, 4), "png")
	if result.IsValid {
		t.Fatal("expected png rejection when only jpeg is allowed")
	}
}

func TestValidator_RejectsExcessiveDimensions(t *testing.T) {
	limits := testLimits()
	limits.MaxWidth = 4
	v := NewValidator(limits, testLogger(t))

	result := v.Validate(encodePNG(t, 16, 4), "png")
	if result.IsValid {
		t.Fatal("expected width rejection")
	}
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.JPG", "jpeg"},
		{"scan.png", "png"},
		{"anim.gif", "gif"},
		{"shot.webp", "webp"},
		{"unknown.bin", "jpeg"},
		{"noext", "jpeg"},
	}
	for _, tt := range tests {
		if got := FormatFromFilename(tt.filename); got != tt.want {
			t.Errorf("FormatFromFilename(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
