package signal

import (
	"strconv"
	"strings"

	"sarathi-be/pkg/store"
)

// ResistanceClassifier decides whether an utterance challenges or
// rejects the guidance just given. Pluggable so the phrase heuristic
// can be swapped for a model-backed classifier without touching the
// flow machine.
type ResistanceClassifier func(utterance string) bool

// Extractor derives structured situational signals from raw
// utterances. Pure heuristics, deterministic for identical input.
type Extractor struct {
	classifyResistance ResistanceClassifier
	readinessStep      float64
}

func NewExtractor(readinessStep float64, rc ResistanceClassifier) *Extractor {
	if readinessStep <= 0 {
		readinessStep = 0.2
	}
	if rc == nil {
		rc = DefaultResistanceClassifier
	}
	return &Extractor{classifyResistance: rc, readinessStep: readinessStep}
}

var emotionKeywords = map[string][]string{
	"anxiety":      {"anxious", "worried", "nervous", "panic", "uneasy"},
	"sadness":      {"sad", "cry", "crying", "depressed", "grief", "heartbroken"},
	"anger":        {"angry", "furious", "irritated", "resent"},
	"fear":         {"afraid", "scared", "terrified", "fear"},
	"confusion":    {"confused", "lost", "don't know what", "unclear"},
	"hopelessness": {"hopeless", "pointless", "no way out"},
	"loneliness":   {"lonely", "alone", "isolated", "no one"},
	"stress":       {"stressed", "pressure", "burned out", "burnout"},
	"frustration":  {"frustrated", "stuck", "fed up"},
	"guilt":        {"guilty", "my fault", "ashamed", "regret"},
	"overwhelm":    {"overwhelmed", "too much", "drowning"},
}

var lifeAreaKeywords = map[string][]string{
	"work":          {"job", "office", "boss", "colleague", "workplace", "work"},
	"career":        {"career", "promotion", "business", "profession"},
	"relationships": {"marriage", "partner", "husband", "wife", "relationship", "breakup", "divorce"},
	"family":        {"family", "parents", "mother", "father", "children", "son", "daughter", "sibling"},
	"health":        {"illness", "sick", "pain", "disease", "health", "sleep"},
	"financial":     {"money", "debt", "loan", "salary", "savings", "financial"},
	"spiritual":     {"meditation", "prayer", "god", "faith", "temple", "sadhana"},
	"education":     {"exam", "studies", "student", "college", "school"},
}

var urgencyKeywords = []string{
	"right now", "urgent", "immediately", "can't wait", "today", "asap",
	"emergency", "running out of time",
}

var resistancePhrases = []string{
	"doesn't help", "does not help", "not helping", "didn't help",
	"you don't understand", "that's not it", "that is not it",
	"this isn't working", "this is not working", "not what i meant",
	"that's wrong", "i disagree", "useless", "already tried that",
	"doesn't work for me", "not helpful",
}

// DefaultResistanceClassifier is the phrase-based heuristic used when
// no model-backed classifier is configured.
func DefaultResistanceClassifier(utterance string) bool {
	text := strings.ToLower(utterance)
	for _, p := range resistancePhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Extract returns zero or more signals for the current utterance.
// Readiness accrues per turn: the returned readiness signal carries a
// score derived from how much is already known plus the per-turn step.
func (e *Extractor) Extract(utterance string, session *store.Session) []store.Signal {
	text := strings.ToLower(utterance)
	var out []store.Signal

	if emotion, _ := matchKeyed(text, emotionKeywords); emotion != "" {
		out = append(out, store.Signal{
			Key:        store.SignalEmotionalState,
			Value:      emotion,
			Confidence: keywordConfidence(text),
		})
	}

	if area, _ := matchKeyed(text, lifeAreaKeywords); area != "" {
		out = append(out, store.Signal{
			Key:        store.SignalLifeArea,
			Value:      area,
			Confidence: keywordConfidence(text),
		})
		// Life area doubles as the broad domain until something more
		// specific overrides it.
		out = append(out, store.Signal{
			Key:        store.SignalDomain,
			Value:      area,
			Confidence: keywordConfidence(text) * 0.9,
		})
	}

	for _, kw := range urgencyKeywords {
		if strings.Contains(text, kw) {
			out = append(out, store.Signal{
				Key:        store.SignalUrgency,
				Value:      "high",
				Confidence: 0.9,
			})
			break
		}
	}

	if e.classifyResistance(utterance) {
		out = append(out, store.Signal{
			Key:        store.SignalResistance,
			Value:      "challenged",
			Confidence: 0.85,
		})
	}

	out = append(out, e.readinessSignal(session))
	return out
}

func (e *Extractor) readinessSignal(session *store.Session) store.Signal {
	prev := 0.0
	if s, ok := session.Signals[store.SignalReadiness]; ok {
		if v, err := strconv.ParseFloat(s.Value, 64); err == nil {
			prev = v
		}
	}
	next := prev + e.readinessStep
	if next > 1.0 {
		next = 1.0
	}
	return store.Signal{
		Key:        store.SignalReadiness,
		Value:      strconv.FormatFloat(next, 'f', 2, 64),
		Confidence: next,
	}
}

// matchKeyed returns the first category whose keyword appears in the
// text, scanning categories in a stable order for determinism.
func matchKeyed(text string, keyed map[string][]string) (string, string) {
	best := ""
	bestKw := ""
	bestPos := len(text) + 1
	for category, kws := range keyed {
		for _, kw := range kws {
			if pos := strings.Index(text, kw); pos >= 0 {
				// Earliest match wins; ties broken alphabetically so map
				// iteration order cannot leak into the result.
				if pos < bestPos || (pos == bestPos && category < best) {
					best = category
					bestKw = kw
					bestPos = pos
				}
			}
		}
	}
	return best, bestKw
}

func keywordConfidence(text string) float64 {
	// A keyword hit in a short message is stronger evidence than the
	// same hit buried in a long one.
	if len(text) <= 60 {
		return 0.8
	}
	if len(text) <= 200 {
		return 0.7
	}
	return 0.6
}

// Merge folds extracted signals into the session map. A new value
// replaces an existing one only if its confidence is not lower, or if
// the stored value is a placeholder. Keys never disappear.
func Merge(existing map[string]store.Signal, extracted []store.Signal) map[string]store.Signal {
	if existing == nil {
		existing = make(map[string]store.Signal)
	}
	for _, sig := range extracted {
		current, ok := existing[sig.Key]
		if !ok || current.Value == store.SignalPlaceholder || sig.Confidence >= current.Confidence {
			existing[sig.Key] = sig
		}
	}
	return existing
}
