package dto

import "time"

type UserProfileDTO struct {
	Name       string `json:"name,omitempty"`
	AgeGroup   string `json:"age_group,omitempty"`
	Profession string `json:"profession,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

type ChatRequest struct {
	SessionId   string          `json:"session_id,omitempty"`
	Message     string          `json:"message" validate:"required,min=1,max=4000"`
	Language    string          `json:"language,omitempty"`
	UserProfile *UserProfileDTO `json:"user_profile,omitempty"`
}

type SourceDTO struct {
	Scripture      string  `json:"scripture"`
	Reference      string  `json:"reference"`
	ContextText    string  `json:"context_text"`
	RelevanceScore float64 `json:"relevance_score"`
}

type FlowMetadataDTO struct {
	DetectedDomain    string   `json:"detected_domain,omitempty"`
	EmotionalState    string   `json:"emotional_state,omitempty"`
	Topics            []string `json:"topics,omitempty"`
	ReadinessScore    float64  `json:"readiness_score"`
	GuidanceType      string   `json:"guidance_type,omitempty"`
	RetrievalDegraded bool     `json:"retrieval_degraded,omitempty"`
	RerankDegraded    bool     `json:"rerank_degraded,omitempty"`
}

type ChatResponse struct {
	SessionId        string            `json:"session_id"`
	Phase            string            `json:"phase"`
	Response         string            `json:"response"`
	SignalsCollected map[string]string `json:"signals_collected"`
	TurnCount        int               `json:"turn_count"`
	IsComplete       bool              `json:"is_complete"`
	Verses           []string          `json:"verses,omitempty"`
	Citations        []string          `json:"citations,omitempty"`
	Sources          []SourceDTO       `json:"sources,omitempty"`
	FlowMetadata     *FlowMetadataDTO  `json:"flow_metadata,omitempty"`
}

type TurnDTO struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Citations []string  `json:"citations,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type GetSessionResponse struct {
	SessionId        string            `json:"session_id"`
	Phase            string            `json:"phase"`
	TurnCount        int               `json:"turn_count"`
	IsComplete       bool              `json:"is_complete"`
	SignalsCollected map[string]string `json:"signals_collected"`
	Turns            []TurnDTO         `json:"turns"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TurnProcessedMessage is the analytics payload published after every
// committed turn.
type TurnProcessedMessage struct {
	SessionId         string            `json:"session_id"`
	Phase             string            `json:"phase"`
	GuidanceType      string            `json:"guidance_type,omitempty"`
	TurnCount         int               `json:"turn_count"`
	Citations         []string          `json:"citations,omitempty"`
	RetrievalDegraded bool              `json:"retrieval_degraded,omitempty"`
	RerankDegraded    bool              `json:"rerank_degraded,omitempty"`
	SignalsCollected  map[string]string `json:"signals_collected,omitempty"`
}

type DeleteSessionRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}
