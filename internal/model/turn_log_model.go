package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TurnLog struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId    string         `gorm:"type:varchar(64);not null;index"`
	Phase        string         `gorm:"type:varchar(32);not null"`
	GuidanceType string         `gorm:"type:varchar(32)"`
	TurnCount    int            `gorm:"default:0"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
}

func (TurnLog) TableName() string {
	return "turn_logs"
}
