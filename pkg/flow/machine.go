package flow

import (
	"sarathi-be/pkg/store"
)

// Config holds the transition thresholds. These come from
// configuration, never from code constants scattered around callers.
type Config struct {
	// SignalThreshold is the number of distinct signal keys that marks
	// the session ready for synthesis.
	SignalThreshold int
	// MaxClarificationTurns forces the advance to synthesis so a
	// session cannot listen forever.
	MaxClarificationTurns int
	// ReadinessThreshold is the readiness score that marks the session
	// ready even before SignalThreshold distinct keys were collected.
	ReadinessThreshold float64
}

// Decision is the outcome of evaluating one turn.
type Decision struct {
	Next store.Phase
	// Answer reports whether this turn runs retrieval and generation
	// (the synthesis sub-step). When false the turn stays
	// conversational: listen, acknowledge, ask.
	Answer bool
	// Forced reports that the advance happened because the turn cap
	// was reached, not because enough was known.
	Forced bool
}

// Machine owns the conversation phase. It is the sole writer of
// Session.Phase; services apply the returned decision, they never set
// the phase themselves.
type Machine struct {
	cfg Config
}

func NewMachine(cfg Config) *Machine {
	if cfg.SignalThreshold <= 0 {
		cfg.SignalThreshold = 3
	}
	if cfg.MaxClarificationTurns <= 0 {
		cfg.MaxClarificationTurns = 5
	}
	if cfg.ReadinessThreshold <= 0 {
		cfg.ReadinessThreshold = 0.8
	}
	return &Machine{cfg: cfg}
}

// Evaluate runs the transition rules for one turn. It is called after
// signal extraction and before retrieval; resistance reports whether
// the extractor saw a resistance signal on THIS utterance (the stored
// signal map never shrinks, so old resistance must not re-trigger the
// regression). The crisis short-circuit never reaches this point; a
// crisis turn leaves the phase untouched.
func (m *Machine) Evaluate(current store.Phase, signals map[string]store.Signal, resistance bool, turnCount int) Decision {
	// A message after closure restarts the cycle with signals retained.
	if current == store.PhaseClosure {
		current = store.PhaseListening
	}

	// Resistance regresses guidance (and an interrupted synthesis)
	// back to listening: the user is telling us we got it wrong.
	if resistance && (current == store.PhaseGuidance || current == store.PhaseSynthesis) {
		return Decision{Next: store.PhaseListening}
	}

	switch current {
	case store.PhaseListening, store.PhaseClarification:
		if ready, forced := m.readyForSynthesis(signals, turnCount); ready {
			return Decision{Next: store.PhaseSynthesis, Answer: true, Forced: forced}
		}
		// Keep gathering. After the opening turn the conversation moves
		// into explicit clarification.
		if turnCount >= 1 {
			return Decision{Next: store.PhaseClarification}
		}
		return Decision{Next: store.PhaseListening}

	case store.PhaseGuidance:
		// Follow-up questions keep answering from the same phase.
		return Decision{Next: store.PhaseGuidance, Answer: true}

	default:
		// Synthesis is transient and never observed across turns; treat
		// a stored synthesis phase as ready to answer again.
		return Decision{Next: store.PhaseSynthesis, Answer: true}
	}
}

// Advance moves a successfully answered turn out of synthesis.
// finality comes from the parsed guidance type of the generated
// response.
func (m *Machine) Advance(current store.Phase, final bool) store.Phase {
	if final {
		return store.PhaseClosure
	}
	if current == store.PhaseSynthesis {
		return store.PhaseGuidance
	}
	return current
}

// Rollback restores the pre-synthesis phase after retrieval or
// generation failed, so the degraded turn does not silently advance
// the conversation.
func (m *Machine) Rollback(previous store.Phase) store.Phase {
	if previous == store.PhaseSynthesis || previous == store.PhaseClosure {
		return store.PhaseListening
	}
	return previous
}

func (m *Machine) readyForSynthesis(signals map[string]store.Signal, turnCount int) (ready, forced bool) {
	if countDistinct(signals) >= m.cfg.SignalThreshold {
		return true, false
	}
	if s, ok := signals[store.SignalUrgency]; ok && s.Value == "high" {
		return true, false
	}
	if s, ok := signals[store.SignalReadiness]; ok && s.Confidence >= m.cfg.ReadinessThreshold {
		return true, false
	}
	if turnCount >= m.cfg.MaxClarificationTurns {
		return true, true
	}
	return false, false
}

// countDistinct counts substantive signal keys. Readiness and
// resistance are flow markers, not knowledge about the situation.
func countDistinct(signals map[string]store.Signal) int {
	n := 0
	for key, s := range signals {
		if key == store.SignalReadiness || key == store.SignalResistance {
			continue
		}
		if s.Value == store.SignalPlaceholder {
			continue
		}
		n++
	}
	return n
}
