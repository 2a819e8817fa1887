package assessment

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Outcome 模型输出的二选一归一化结果：解析成功的结构化对象，
// 或者无法解析时的原始文本。两者有且仅有一个生效。
type Outcome struct {
	Structured map[string]any
	Raw        string
}

// IsStructured 是否为结构化结果
func (o Outcome) IsStructured() bool {
	return o.Structured != nil
}

// Payload 返回对外的 JSON 载荷，原始文本包装为 {rawText: ...}
func (o Outcome) Payload() any {
	if o.Structured != nil {
		return o.Structured
	}
	return map[string]any{"rawText": o.Raw}
}

// ShapeAnalysis 尝试将模型文本解析为 JSON 对象，失败则原样包装。
// 模型常把 JSON 放进 markdown 代码块，解析前先剥掉围栏。
func ShapeAnalysis(text string) Outcome {
	candidate := stripCodeFence(strings.TrimSpace(text))

	var structured map[string]any
	if err := sonic.UnmarshalString(candidate, &structured); err == nil {
		return Outcome{Structured: structured}
	}
	return Outcome{Raw: text}
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// FallbackAnalysis 模型不可用时的固定降级结果。
// 与任何部分模型输出无关，每次调用返回内容相同的新实例。
func FallbackAnalysis() map[string]any {
	return map[string]any{
		"diagnosis":  "other",
		"confidence": 10,
		"severity":   "unknown",
		"description": "自动分析暂时不可用，无法给出具体判断。" +
			"以下为通用护理建议，不构成诊断。",
		"recommendations": []any{
			"保持患处清洁干燥，避免抓挠",
			"暂停使用新的护肤品或刺激性产品",
			"如症状持续、扩散或伴随疼痛，请尽快就医",
		},
		"refer_to_dermatologist": false,
		"note":                   "model unavailable",
	}
}

// FallbackAssistantText 助手接口模型不可用时的固定回复
const FallbackAssistantText = "抱歉，智能助手暂时不可用。日常护肤请注意温和清洁、做好保湿和防晒；" +
	"如皮肤出现持续不适或明显变化，建议咨询皮肤科医生。"
