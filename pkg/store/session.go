package store

import "time"

// Phase is the conversation lifecycle phase. The flow machine is the
// only writer; everything else treats it as read-only.
type Phase string

const (
	PhaseListening     Phase = "listening"
	PhaseClarification Phase = "clarification"
	PhaseSynthesis     Phase = "synthesis"
	PhaseGuidance      Phase = "guidance"
	PhaseClosure       Phase = "closure"
)

// Signal keys form a closed enumeration. New keys require a flow
// machine review, not just an extractor change.
const (
	SignalDomain         = "domain"
	SignalEmotionalState = "emotional_state"
	SignalUrgency        = "urgency"
	SignalLifeArea       = "life_area"
	SignalReadiness      = "readiness"
	SignalResistance     = "resistance"
)

// SignalPlaceholder marks a key whose value is not yet known. A
// placeholder always loses a merge regardless of confidence.
const SignalPlaceholder = "unknown"

type Signal struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Turn is one message in a session. The turn list is append-only.
type Turn struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Text      string    `json:"text"`
	Citations []string  `json:"citations,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type UserProfile struct {
	Name       string `json:"name,omitempty"`
	AgeGroup   string `json:"age_group,omitempty"`
	Profession string `json:"profession,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

// Session is the versioned per-conversation record. It is loaded,
// mutated exactly once per processed turn, and committed with an
// optimistic version check.
type Session struct {
	ID          string            `json:"id"`
	Version     int64             `json:"version"`
	Phase       Phase             `json:"phase"`
	TurnCount   int               `json:"turn_count"`
	Signals     map[string]Signal `json:"signals"`
	Turns       []Turn            `json:"turns"`
	Profile     *UserProfile      `json:"profile,omitempty"`
	Language    string            `json:"language,omitempty"`
	IsComplete  bool              `json:"is_complete"`
	HelpOffered bool              `json:"help_offered"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewSession returns a fresh session in the listening phase.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Version:   0,
		Phase:     PhaseListening,
		Signals:   make(map[string]Signal),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so a turn can be assembled without
// touching the committed state until the commit succeeds.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Signals = make(map[string]Signal, len(s.Signals))
	for k, v := range s.Signals {
		cp.Signals[k] = v
	}
	cp.Turns = make([]Turn, len(s.Turns))
	copy(cp.Turns, s.Turns)
	if s.Profile != nil {
		p := *s.Profile
		cp.Profile = &p
	}
	return &cp
}
