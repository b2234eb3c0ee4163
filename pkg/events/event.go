package events

import "time"

// Event type codes published by the companion core.
const (
	TypeTurnProcessed  = "TURN_PROCESSED"
	TypeSafetyOverride = "SAFETY_OVERRIDE"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_PROCESSED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSafetyOverride builds the ops alert event emitted when the crisis
// detector fires.
func NewSafetyOverride(sessionID, category string) BaseEvent {
	return BaseEvent{
		Type: TypeSafetyOverride,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"category":   category,
		},
		OccurredAt: time.Now().UTC(),
	}
}
