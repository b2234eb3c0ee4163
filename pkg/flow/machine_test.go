package flow

import (
	"testing"

	"sarathi-be/pkg/store"
)

func sig(key, value string, conf float64) store.Signal {
	return store.Signal{Key: key, Value: value, Confidence: conf}
}

func signalsOf(entries ...store.Signal) map[string]store.Signal {
	m := make(map[string]store.Signal)
	for _, e := range entries {
		m[e.Key] = e
	}
	return m
}

func TestEvaluate(t *testing.T) {
	m := NewMachine(Config{SignalThreshold: 3, MaxClarificationTurns: 5, ReadinessThreshold: 0.8})

	tests := []struct {
		name       string
		current    store.Phase
		signals    map[string]store.Signal
		resistance bool
		turnCount  int
		wantNext   store.Phase
		wantAnswer bool
		wantForced bool
	}{
		{
			name:     "first turn stays listening",
			current:  store.PhaseListening,
			signals:  signalsOf(sig(store.SignalReadiness, "0.20", 0.2)),
			wantNext: store.PhaseListening,
		},
		{
			name:      "second turn moves to clarification",
			current:   store.PhaseListening,
			signals:   signalsOf(sig(store.SignalEmotionalState, "sadness", 0.7)),
			turnCount: 1,
			wantNext:  store.PhaseClarification,
		},
		{
			name:    "threshold signals trigger synthesis",
			current: store.PhaseClarification,
			signals: signalsOf(
				sig(store.SignalEmotionalState, "sadness", 0.7),
				sig(store.SignalLifeArea, "work", 0.7),
				sig(store.SignalDomain, "work", 0.6),
			),
			turnCount:  2,
			wantNext:   store.PhaseSynthesis,
			wantAnswer: true,
		},
		{
			name:       "urgency triggers synthesis early",
			current:    store.PhaseListening,
			signals:    signalsOf(sig(store.SignalUrgency, "high", 0.9)),
			wantNext:   store.PhaseSynthesis,
			wantAnswer: true,
		},
		{
			name:       "readiness score triggers synthesis",
			current:    store.PhaseClarification,
			signals:    signalsOf(sig(store.SignalReadiness, "0.80", 0.8)),
			turnCount:  3,
			wantNext:   store.PhaseSynthesis,
			wantAnswer: true,
		},
		{
			name:       "turn cap forces synthesis",
			current:    store.PhaseClarification,
			signals:    signalsOf(sig(store.SignalEmotionalState, "sadness", 0.7)),
			turnCount:  5,
			wantNext:   store.PhaseSynthesis,
			wantAnswer: true,
			wantForced: true,
		},
		{
			name:       "guidance answers follow-ups",
			current:    store.PhaseGuidance,
			signals:    signalsOf(),
			turnCount:  6,
			wantNext:   store.PhaseGuidance,
			wantAnswer: true,
		},
		{
			name:       "resistance regresses guidance to listening",
			current:    store.PhaseGuidance,
			signals:    signalsOf(sig(store.SignalResistance, "challenged", 0.85)),
			resistance: true,
			turnCount:  6,
			wantNext:   store.PhaseListening,
		},
		{
			name:       "stale resistance signal does not regress",
			current:    store.PhaseGuidance,
			signals:    signalsOf(sig(store.SignalResistance, "challenged", 0.85)),
			resistance: false,
			turnCount:  7,
			wantNext:   store.PhaseGuidance,
			wantAnswer: true,
		},
		{
			name:      "closure restarts listening",
			current:   store.PhaseClosure,
			signals:   signalsOf(sig(store.SignalReadiness, "0.20", 0.2)),
			turnCount: 8,
			// Turn cap already exceeded, so the restarted cycle goes
			// straight back to answering.
			wantNext:   store.PhaseSynthesis,
			wantAnswer: true,
			wantForced: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Evaluate(tt.current, tt.signals, tt.resistance, tt.turnCount)
			if got.Next != tt.wantNext {
				t.Errorf("Next = %v, want %v", got.Next, tt.wantNext)
			}
			if got.Answer != tt.wantAnswer {
				t.Errorf("Answer = %v, want %v", got.Answer, tt.wantAnswer)
			}
			if got.Forced != tt.wantForced {
				t.Errorf("Forced = %v, want %v", got.Forced, tt.wantForced)
			}
		})
	}
}

func TestEvaluateIgnoresFlowMarkersInCount(t *testing.T) {
	m := NewMachine(Config{SignalThreshold: 2, MaxClarificationTurns: 10})

	// Readiness and resistance are flow markers; two of them plus one
	// substantive key must not reach a threshold of 2... but two
	// substantive keys must.
	signals := signalsOf(
		sig(store.SignalReadiness, "0.40", 0.4),
		sig(store.SignalResistance, "challenged", 0.85),
		sig(store.SignalEmotionalState, "anger", 0.7),
	)
	got := m.Evaluate(store.PhaseClarification, signals, false, 2)
	if got.Answer {
		t.Error("flow markers counted toward the signal threshold")
	}

	signals[store.SignalLifeArea] = sig(store.SignalLifeArea, "family", 0.7)
	got = m.Evaluate(store.PhaseClarification, signals, false, 2)
	if !got.Answer {
		t.Error("two substantive keys should reach threshold 2")
	}
}

func TestAdvanceAndRollback(t *testing.T) {
	m := NewMachine(Config{})

	if got := m.Advance(store.PhaseSynthesis, false); got != store.PhaseGuidance {
		t.Errorf("Advance(synthesis) = %v, want guidance", got)
	}
	if got := m.Advance(store.PhaseSynthesis, true); got != store.PhaseClosure {
		t.Errorf("Advance(synthesis, final) = %v, want closure", got)
	}
	if got := m.Advance(store.PhaseGuidance, true); got != store.PhaseClosure {
		t.Errorf("Advance(guidance, final) = %v, want closure", got)
	}

	if got := m.Rollback(store.PhaseClarification); got != store.PhaseClarification {
		t.Errorf("Rollback(clarification) = %v, want clarification", got)
	}
	if got := m.Rollback(store.PhaseSynthesis); got != store.PhaseListening {
		t.Errorf("Rollback(synthesis) = %v, want listening", got)
	}
}
