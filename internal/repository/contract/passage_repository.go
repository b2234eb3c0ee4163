package contract

import (
	"context"

	"sarathi-be/internal/entity"
)

// ScoredPassage wraps a Passage with its retrieval score.
type ScoredPassage struct {
	Passage *entity.Passage
	Score   float64 // 0.0 to 1.0 (1.0 = best match)
}

type PassageRepository interface {
	Create(ctx context.Context, passage *entity.Passage) error
	CreateBulk(ctx context.Context, passages []*entity.Passage) error
	FindByRefKey(ctx context.Context, refKey string) (*entity.Passage, error)
	Count(ctx context.Context) (int64, error)
	// SemanticSearch ranks passages by cosine similarity of the query
	// vector, restricted to the given collections.
	SemanticSearch(ctx context.Context, embedding []float32, limit int, collections []string) ([]*ScoredPassage, error)
	// KeywordSearch ranks passages by full-text relevance, restricted to
	// the given collections.
	KeywordSearch(ctx context.Context, query string, limit int, collections []string) ([]*ScoredPassage, error)
}
