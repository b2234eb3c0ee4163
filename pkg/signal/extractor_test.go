package signal

import (
	"testing"

	"sarathi-be/pkg/store"
)

func find(signals []store.Signal, key string) (store.Signal, bool) {
	for _, s := range signals {
		if s.Key == key {
			return s, true
		}
	}
	return store.Signal{}, false
}

func TestExtract(t *testing.T) {
	e := NewExtractor(0.2, nil)

	tests := []struct {
		name      string
		utterance string
		wantKey   string
		wantValue string
	}{
		{"emotion", "I feel so anxious these days", store.SignalEmotionalState, "anxiety"},
		{"life area", "my boss keeps piling on work", store.SignalLifeArea, "work"},
		{"urgency", "I need an answer right now", store.SignalUrgency, "high"},
		{"resistance", "that doesn't help me at all", store.SignalResistance, "challenged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := store.NewSession("s")
			got := e.Extract(tt.utterance, session)
			sig, ok := find(got, tt.wantKey)
			if !ok {
				t.Fatalf("Extract(%q) missing key %q, got %v", tt.utterance, tt.wantKey, got)
			}
			if sig.Value != tt.wantValue {
				t.Errorf("signal %q value = %q, want %q", tt.wantKey, sig.Value, tt.wantValue)
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(0.2, nil)
	session := store.NewSession("s")

	// "work" and "family" keywords in the same message must resolve the
	// same way on every run.
	utterance := "my job and my family both exhaust me"
	first := e.Extract(utterance, session)
	for i := 0; i < 50; i++ {
		got := e.Extract(utterance, session)
		a, _ := find(first, store.SignalLifeArea)
		b, _ := find(got, store.SignalLifeArea)
		if a.Value != b.Value {
			t.Fatalf("run %d: life_area %q != %q", i, b.Value, a.Value)
		}
	}
}

func TestReadinessAccrues(t *testing.T) {
	e := NewExtractor(0.2, nil)
	session := store.NewSession("s")

	for turn := 1; turn <= 6; turn++ {
		got := e.Extract("tell me more", session)
		sig, ok := find(got, store.SignalReadiness)
		if !ok {
			t.Fatal("readiness signal missing")
		}
		session.Signals = Merge(session.Signals, got)

		want := 0.2 * float64(turn)
		if want > 1.0 {
			want = 1.0
		}
		if sig.Confidence < want-0.001 || sig.Confidence > want+0.001 {
			t.Errorf("turn %d readiness = %v, want %v", turn, sig.Confidence, want)
		}
	}
}

func TestMergeConfidenceMonotone(t *testing.T) {
	signals := map[string]store.Signal{
		store.SignalEmotionalState: {Key: store.SignalEmotionalState, Value: "sadness", Confidence: 0.8},
	}

	// Lower confidence must not replace.
	signals = Merge(signals, []store.Signal{
		{Key: store.SignalEmotionalState, Value: "anger", Confidence: 0.5},
	})
	if signals[store.SignalEmotionalState].Value != "sadness" {
		t.Error("lower-confidence merge replaced stored value")
	}

	// Equal confidence replaces.
	signals = Merge(signals, []store.Signal{
		{Key: store.SignalEmotionalState, Value: "anger", Confidence: 0.8},
	})
	if signals[store.SignalEmotionalState].Value != "anger" {
		t.Error("equal-confidence merge must replace")
	}

	// Placeholder always loses.
	signals[store.SignalDomain] = store.Signal{Key: store.SignalDomain, Value: store.SignalPlaceholder, Confidence: 0.9}
	signals = Merge(signals, []store.Signal{
		{Key: store.SignalDomain, Value: "work", Confidence: 0.3},
	})
	if signals[store.SignalDomain].Value != "work" {
		t.Error("placeholder must be replaceable at any confidence")
	}
}

func TestMergeNeverShrinks(t *testing.T) {
	signals := map[string]store.Signal{
		store.SignalLifeArea: {Key: store.SignalLifeArea, Value: "family", Confidence: 0.7},
	}
	merged := Merge(signals, []store.Signal{
		{Key: store.SignalUrgency, Value: "high", Confidence: 0.9},
	})
	if len(merged) != 2 {
		t.Fatalf("merge shrank or failed to grow: %v", merged)
	}
	if _, ok := merged[store.SignalLifeArea]; !ok {
		t.Error("existing key dropped by merge")
	}
}

func TestCustomResistanceClassifier(t *testing.T) {
	always := func(string) bool { return true }
	e := NewExtractor(0.2, always)
	got := e.Extract("thank you, that helps", store.NewSession("s"))
	if _, ok := find(got, store.SignalResistance); !ok {
		t.Error("pluggable classifier was not consulted")
	}
}
