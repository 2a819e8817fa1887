package model

import "context"

// InlineMedia 内联二进制内容（图片）
type InlineMedia struct {
	MIMEType string
	Data     []byte
}

// Part 生成请求的内容片段，文本和内联媒体二选一
type Part struct {
	Text  string
	Media *InlineMedia
}

// Request 一次模型调用的完整请求，构造后不再修改
type Request struct {
	Model  string
	System string
	Parts  []Part
}

// Result 模型调用结果
type Result struct {
	Text string
}

// Provider 生成式模型调用能力的抽象
type Provider interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// TextPart 构造文本片段
func TextPart(text string) Part {
	return Part{Text: text}
}

// MediaPart 构造内联媒体片段
func MediaPart(mimeType string, data []byte) Part {
	return Part{Media: &InlineMedia{MIMEType: mimeType, Data: data}}
}
