package catalog

// Condition 常见皮肤问题的科普条目
type Condition struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Symptoms []string `json:"symptoms"`
	Short    string   `json:"short"`
}

// 固定的常见皮肤问题目录，按常见程度排序
var commonConditions = []Condition{
	{
		ID:       "acne",
		Name:     "Acne",
		Symptoms: []string{"pimples", "blackheads", "whiteheads", "oily skin"},
		Short:    "Clogged hair follicles causing pimples, most common on the face, chest and back.",
	},
	{
		ID:       "eczema",
		Name:     "Eczema (Atopic Dermatitis)",
		Symptoms: []string{"dry skin", "itching", "red patches", "cracked skin"},
		Short:    "Chronic itchy inflammation that makes skin dry, red and cracked, often in flexural areas.",
	},
	{
		ID:       "psoriasis",
		Name:     "Psoriasis",
		Symptoms: []string{"thick scaly plaques", "silvery scales", "itching", "nail changes"},
		Short:    "Autoimmune condition producing thick, scaly plaques, typically on elbows, knees and scalp.",
	},
	{
		ID:       "rosacea",
		Name:     "Rosacea",
		Symptoms: []string{"facial redness", "visible blood vessels", "flushing", "bumps"},
		Short:    "Persistent facial redness and flushing, sometimes with small red bumps.",
	},
	{
		ID:       "dermatitis",
		Name:     "Contact Dermatitis",
		Symptoms: []string{"red rash", "itching", "blisters", "burning"},
		Short:    "Itchy rash triggered by direct contact with an irritant or allergen.",
	},
	{
		ID:       "hives",
		Name:     "Hives (Urticaria)",
		Symptoms: []string{"raised welts", "intense itching", "swelling", "welts that move around"},
		Short:    "Raised, itchy welts that appear suddenly, usually from an allergic reaction.",
	},
	{
		ID:       "fungal_infection",
		Name:     "Fungal Infection (Ringworm / Tinea)",
		Symptoms: []string{"ring-shaped rash", "scaling", "itching", "spreading edge"},
		Short:    "Contagious fungal rash forming itchy, scaly, ring-shaped patches.",
	},
	{
		ID:       "vitiligo",
		Name:     "Vitiligo",
		Symptoms: []string{"white patches", "loss of skin color", "premature graying"},
		Short:    "Loss of skin pigment producing well-defined white patches.",
	},
	{
		ID:       "melanoma_suspect",
		Name:     "Suspicious Mole (Melanoma Risk)",
		Symptoms: []string{"asymmetric mole", "irregular border", "color variation", "growing size"},
		Short:    "A changing or irregular mole that should be checked by a dermatologist promptly.",
	},
	{
		ID:       "shingles",
		Name:     "Shingles (Herpes Zoster)",
		Symptoms: []string{"painful blisters", "burning pain", "one-sided band rash"},
		Short:    "Painful blistering rash in a band on one side of the body, caused by the chickenpox virus.",
	},
}

// Common 返回固定目录的副本，调用方可以安全修改
func Common() []Condition {
	out := make([]Condition, len(commonConditions))
	copy(out, commonConditions)
	return out
}

// Lookup 按 ID 查找条目
func Lookup(id string) (Condition, bool) {
	for _, c := range commonConditions {
		if c.ID == id {
			return c, true
		}
	}
	return Condition{}, false
}
