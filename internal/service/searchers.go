package service

import (
	"context"
	"fmt"

	"sarathi-be/internal/repository/contract"
	"sarathi-be/pkg/embedding"
	"sarathi-be/pkg/rag/search"
	"sarathi-be/pkg/store"
)

// semanticSearcher embeds the query then runs pgvector similarity over
// the passage table, restricted to the collections allowed this turn.
type semanticSearcher struct {
	repo        contract.PassageRepository
	embedder    embedding.EmbeddingProvider
	collections []string
}

func newSemanticSearcher(repo contract.PassageRepository, embedder embedding.EmbeddingProvider, collections []string) search.SemanticSearcher {
	return &semanticSearcher{repo: repo, embedder: embedder, collections: collections}
}

func (s *semanticSearcher) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	res, err := s.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.repo.SemanticSearch(ctx, res.Embedding.Values, k, s.collections)
	if err != nil {
		return nil, err
	}
	return toSearchResults(scored), nil
}

// keywordSearcher runs Postgres full-text search over the same table.
type keywordSearcher struct {
	repo        contract.PassageRepository
	collections []string
}

func newKeywordSearcher(repo contract.PassageRepository, collections []string) search.KeywordSearcher {
	return &keywordSearcher{repo: repo, collections: collections}
}

func (s *keywordSearcher) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	scored, err := s.repo.KeywordSearch(ctx, query, k, s.collections)
	if err != nil {
		return nil, err
	}
	return toSearchResults(scored), nil
}

func toSearchResults(scored []*contract.ScoredPassage) []search.Result {
	results := make([]search.Result, 0, len(scored))
	for _, sp := range scored {
		if sp.Passage == nil {
			continue
		}
		results = append(results, search.Result{
			RefKey: sp.Passage.RefKey,
			Text:   sp.Passage.Text,
			Source: store.SourceMeta{
				Collection: sp.Passage.Collection,
				Tags:       sp.Passage.Tags,
			},
			Score: sp.Score,
		})
	}
	return results
}
