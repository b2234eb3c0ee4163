package search

import (
	"context"

	"sarathi-be/pkg/store"
)

// Result is one raw hit from a single channel, scores still in the
// channel's native scale.
type Result struct {
	RefKey string
	Text   string
	Source store.SourceMeta
	Score  float64
}

// SemanticSearcher is the embedding nearest-neighbor channel.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// KeywordSearcher is the lexical channel.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}
