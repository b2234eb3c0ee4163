package safety

import "regexp"

// Softener rewrites dismissive or blaming phrasing in generated text
// before it reaches the user.
type Softener struct {
	rules []softenRule
}

type softenRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var defaultReplacements = []struct {
	pattern     string
	replacement string
}{
	{`it was meant to be`, "this is a difficult experience"},
	{`karma from past life`, "a challenging situation"},
	{`you deserve this`, "you are going through something hard"},
	{`this is your fault`, "this situation has affected you deeply"},
	{`you should not feel`, "your feelings are valid, and"},
	{`just be positive`, "be gentle with yourself"},
	{`everything happens for a reason`, "this is part of your journey"},
	{`stop feeling`, "acknowledge these feelings, and"},
	{`get over it`, "work through this at your own pace"},
	{`others have it worse`, "your experience is valid"},
	{`think about the bright side`, "take things one step at a time"},
	{`you brought this upon yourself`, "you are facing a difficult situation"},
}

func NewSoftener() *Softener {
	rules := make([]softenRule, 0, len(defaultReplacements))
	for _, r := range defaultReplacements {
		rules = append(rules, softenRule{
			pattern:     regexp.MustCompile(`(?i)` + r.pattern),
			replacement: r.replacement,
		})
	}
	return &Softener{rules: rules}
}

// Soften replaces every banned phrase with its supportive alternative.
func (s *Softener) Soften(text string) string {
	for _, rule := range s.rules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}
