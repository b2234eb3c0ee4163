package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type Passage struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RefKey     string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Text       string          `gorm:"type:text;not null"`
	Collection string          `gorm:"type:varchar(128);not null;index"`
	Tags       datatypes.JSON  `gorm:"type:jsonb"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 uses 768 dimensions
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (Passage) TableName() string {
	return "passages"
}
