package entity

import (
	"time"

	"github.com/google/uuid"
)

// Passage is one scripture verse or teaching unit in the knowledge base.
type Passage struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RefKey     string    // canonical citation key, e.g. "BG 2.47"
	Text       string
	Collection string // source text, e.g. "Bhagavad Gita"
	Tags       []string
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
