package prompt

import (
	"strings"
	"testing"

	"sarathi-be/pkg/store"
)

func testSession() *store.Session {
	s := store.NewSession("s1")
	s.Profile = &store.UserProfile{Name: "Asha", Profession: "teacher"}
	s.Signals[store.SignalEmotionalState] = store.Signal{Key: store.SignalEmotionalState, Value: "anxiety", Confidence: 0.8}
	s.Signals[store.SignalLifeArea] = store.Signal{Key: store.SignalLifeArea, Value: "work", Confidence: 0.7}
	s.Signals[store.SignalReadiness] = store.Signal{Key: store.SignalReadiness, Value: "0.60", Confidence: 0.6}
	s.Turns = []store.Turn{
		{Role: "user", Text: "I am struggling at work"},
		{Role: "assistant", Text: "That sounds heavy. What feels hardest?"},
	}
	return s
}

func doc(key, text string) store.ScoredDocument {
	return store.ScoredDocument{
		RetrievalCandidate: store.RetrievalCandidate{
			RefKey: key,
			Text:   text,
			Source: store.SourceMeta{Collection: "Bhagavad Gita"},
		},
		Relevance: 0.9,
	}
}

func TestBuildSectionOrder(t *testing.T) {
	b := NewBuilder(testSession(), "what should I do", store.PhaseSynthesis,
		[]store.ScoredDocument{doc("gita 2.47", "You have a right to action alone...")})
	out := b.Build()

	sections := []string{"<user_profile>", "<known_facts>", "<conversation>", "<instructions>", "<passages>", "<user_message>"}
	last := -1
	for _, sec := range sections {
		idx := strings.Index(out, sec)
		if idx < 0 {
			t.Fatalf("section %s missing from prompt", sec)
		}
		if idx < last {
			t.Errorf("section %s appears out of order", sec)
		}
		last = idx
	}
}

func TestBuildTagsPassagesWithRefKeys(t *testing.T) {
	b := NewBuilder(testSession(), "help", store.PhaseSynthesis,
		[]store.ScoredDocument{doc("gita 2.47", "verse text")})
	out := b.Build()

	if !strings.Contains(out, "[ref: gita 2.47]") {
		t.Error("passage not tagged with its reference key")
	}
}

func TestBuildListeningPhaseHasNoPassages(t *testing.T) {
	b := NewBuilder(testSession(), "I feel lost", store.PhaseListening, nil)
	out := b.Build()

	if strings.Contains(out, "<passages>") {
		t.Error("listening prompt must not carry passages")
	}
	if !strings.Contains(out, "Do NOT give advice") {
		t.Error("listening instructions missing")
	}
}

func TestBuildHistoryWindow(t *testing.T) {
	s := testSession()
	s.Turns = nil
	for i := 0; i < 30; i++ {
		s.Turns = append(s.Turns, store.Turn{Role: "user", Text: "turn-" + string(rune('a'+i))})
	}

	b := NewBuilder(s, "msg", store.PhaseGuidance, nil)
	out := b.Build()

	if strings.Contains(out, "turn-a") {
		t.Error("oldest turn should fall outside the window")
	}
	if !strings.Contains(out, "turn-"+string(rune('a'+29))) {
		t.Error("newest turn must be inside the window")
	}
}

func TestBuildDeterministicFacts(t *testing.T) {
	first := NewBuilder(testSession(), "m", store.PhaseGuidance, nil).Build()
	for i := 0; i < 20; i++ {
		if got := NewBuilder(testSession(), "m", store.PhaseGuidance, nil).Build(); got != first {
			t.Fatal("identical sessions must produce identical prompts")
		}
	}
}

func TestBuildOmitsFlowMarkers(t *testing.T) {
	out := NewBuilder(testSession(), "m", store.PhaseGuidance, nil).Build()
	if strings.Contains(out, "readiness") {
		t.Error("readiness marker leaked into known facts")
	}
}
