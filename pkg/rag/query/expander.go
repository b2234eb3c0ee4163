package query

import (
	"context"
	"strings"

	"sarathi-be/pkg/llm"
	"sarathi-be/pkg/store"
)

// lifeAreaSynonyms widens a detected life area into retrieval-friendly
// vocabulary. The corpus speaks in these terms more often than in the
// user's.
var lifeAreaSynonyms = map[string]string{
	"work":          "career job workplace profession duty employment",
	"family":        "parents children siblings house relations domestic",
	"relationships": "marriage partner love conflict divorce connection",
	"financial":     "money wealth debt economic poverty prosperity",
	"health":        "illness sickness body pain healing physical well-being",
	"spiritual":     "practice meditation sadhana devotion god faith",
	"career":        "job business success failure profession ambition",
	"education":     "studies exams learning student knowledge",
}

// emotionConcepts maps an emotional state to the concepts the corpus
// addresses it with.
var emotionConcepts = map[string][]string{
	"anxiety":      {"vairagya", "surrender", "present moment", "trust"},
	"sadness":      {"impermanence", "acceptance", "dharma", "compassion"},
	"anger":        {"patience", "forgiveness", "detachment", "self control"},
	"confusion":    {"viveka", "clarity", "svadharma", "wisdom"},
	"fear":         {"courage", "faith", "surrender", "strength"},
	"hopelessness": {"hope", "grace", "perseverance", "faith"},
	"frustration":  {"patience", "acceptance", "karma", "equanimity"},
	"guilt":        {"forgiveness", "redemption", "renewal", "self compassion"},
	"loneliness":   {"connection", "devotion", "inner self", "love"},
	"stress":       {"peace", "balance", "karma yoga", "detachment"},
	"overwhelm":    {"surrender", "trust", "simplicity", "present moment"},
}

var defaultConcepts = []string{"dharma", "karma", "peace", "wisdom"}

// Expander turns the canonical utterance plus accumulated signals into
// a small ordered set of search-query variants. Element 0 is always
// the verbatim utterance, so retrieval has a literal-match query even
// when every expansion path fails.
type Expander struct {
	refiner    llm.LLMProvider // optional paraphraser, may be nil
	maxQueries int
}

func NewExpander(refiner llm.LLMProvider, maxQueries int) *Expander {
	if maxQueries <= 0 {
		maxQueries = 3
	}
	return &Expander{refiner: refiner, maxQueries: maxQueries}
}

// Expand builds the query variants. Failures in the optional LLM
// refiner degrade to the heuristic variants; the result is never
// empty.
func (e *Expander) Expand(ctx context.Context, utterance string, signals map[string]store.Signal) []string {
	queries := []string{strings.TrimSpace(utterance)}

	if v := e.signalVariant(utterance, signals); v != "" {
		queries = append(queries, v)
	}
	if v := e.conceptVariant(signals); v != "" {
		queries = append(queries, v)
	}
	if e.refiner != nil && len(queries) < e.maxQueries {
		if v := e.refinedVariant(ctx, utterance); v != "" {
			queries = append(queries, v)
		}
	}

	return dedup(queries, e.maxQueries)
}

// signalVariant front-loads the life area vocabulary so the corpus
// matching is weighed toward the user's situation.
func (e *Expander) signalVariant(utterance string, signals map[string]store.Signal) string {
	var parts []string

	if area, ok := signals[store.SignalLifeArea]; ok && area.Value != store.SignalPlaceholder {
		keywords := lifeAreaSynonyms[area.Value]
		if keywords == "" {
			keywords = area.Value
		}
		parts = append(parts, area.Value+" "+keywords)
	}

	parts = append(parts, strings.TrimSpace(utterance))

	if emotion, ok := signals[store.SignalEmotionalState]; ok && emotion.Value != store.SignalPlaceholder {
		parts = append(parts, "dealing with "+emotion.Value)
	}

	if len(parts) == 1 {
		return "" // nothing beyond the verbatim query
	}
	return strings.Join(parts, ". ")
}

func (e *Expander) conceptVariant(signals map[string]store.Signal) string {
	concepts := defaultConcepts
	if emotion, ok := signals[store.SignalEmotionalState]; ok {
		if c, found := emotionConcepts[emotion.Value]; found {
			concepts = c
		}
	} else {
		return ""
	}
	return strings.Join(concepts, " ")
}

func (e *Expander) refinedVariant(ctx context.Context, utterance string) string {
	prompt := "Rephrase the following request as a short search query for a scripture corpus. " +
		"Reply with the query only, no explanation.\n\n" + utterance
	out, err := e.refiner.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return "" // degrade silently; heuristic variants still stand
	}
	out = strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if out == "" || len(out) > 300 {
		return ""
	}
	return out
}

func dedup(queries []string, max int) []string {
	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "")
	}
	return out
}
