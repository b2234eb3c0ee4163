package entity

import (
	"time"

	"github.com/google/uuid"
)

// TurnLog is the analytics record persisted per processed turn.
type TurnLog struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId    string
	Phase        string
	GuidanceType string
	TurnCount    int
	Payload      map[string]interface{}
	CreatedAt    time.Time
}
