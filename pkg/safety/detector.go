package safety

import "strings"

// Category of a safety match.
type Category string

const (
	CategoryCrisis       Category = "crisis"
	CategoryAddiction    Category = "addiction"
	CategoryMentalHealth Category = "mental_health"
)

// Result of scanning one utterance.
type Result struct {
	Triggered bool
	Category  Category
	Keyword   string
}

// Detector is a pure keyword scanner. It runs before everything else
// on every turn and must never depend on an external call, so it
// keeps working when retrieval and generation are down.
type Detector struct {
	crisisKeywords       []string
	addictionKeywords    []string
	mentalHealthKeywords []string
}

// NewDetector builds a detector from the given keyword lists. A nil
// list falls back to the built-in defaults.
func NewDetector(crisis, addiction, mentalHealth []string) *Detector {
	if crisis == nil {
		crisis = DefaultCrisisKeywords
	}
	if addiction == nil {
		addiction = DefaultAddictionKeywords
	}
	if mentalHealth == nil {
		mentalHealth = DefaultMentalHealthKeywords
	}
	return &Detector{
		crisisKeywords:       lowerAll(crisis),
		addictionKeywords:    lowerAll(addiction),
		mentalHealthKeywords: lowerAll(mentalHealth),
	}
}

// Check scans the utterance for crisis keywords. A hit short-circuits
// the whole pipeline for that turn.
func (d *Detector) Check(utterance string) Result {
	text := strings.ToLower(utterance)
	for _, kw := range d.crisisKeywords {
		if strings.Contains(text, kw) {
			return Result{Triggered: true, Category: CategoryCrisis, Keyword: kw}
		}
	}
	return Result{}
}

// CheckSupportNeed looks for addiction or severe mental health
// indicators. These do not short-circuit; the caller appends the
// matching resource block to the generated reply.
func (d *Detector) CheckSupportNeed(utterance string) Result {
	text := strings.ToLower(utterance)
	for _, kw := range d.addictionKeywords {
		if strings.Contains(text, kw) {
			return Result{Triggered: true, Category: CategoryAddiction, Keyword: kw}
		}
	}
	for _, kw := range d.mentalHealthKeywords {
		if strings.Contains(text, kw) {
			return Result{Triggered: true, Category: CategoryMentalHealth, Keyword: kw}
		}
	}
	return Result{}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
