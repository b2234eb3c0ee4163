package rerank

import (
	"context"
	"log"
	"sort"
	"time"

	"sarathi-be/pkg/store"
)

// Score is one reranker judgment: an absolute relevance in [0,1] for
// a ref key, independent of the fusion score.
type Score struct {
	RefKey    string
	Relevance float64
}

// Reranker rescoring contract. Implementations call an external
// service; Apply handles timeouts, retry and degradation.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []store.RetrievalCandidate) ([]Score, error)
}

// Config for the rerank stage.
type Config struct {
	TopP         int
	MinRelevance float64
	CallTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopP <= 0 {
		c.TopP = 5
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	return c
}

// Apply reranks the fused candidates against the original utterance.
// Candidates below MinRelevance are dropped, never padded back in; an
// empty passage set is a legitimate outcome. On reranker failure the
// fused order is used truncated to TopP and degraded=true is returned
// so the caller can flag lower confidence.
func Apply(ctx context.Context, rr Reranker, cfg Config, query string, candidates []store.RetrievalCandidate) (docs []store.ScoredDocument, degraded bool) {
	cfg = cfg.withDefaults()
	if len(candidates) == 0 {
		return nil, false
	}

	scores, err := callWithRetry(ctx, rr, cfg, query, candidates)
	if err != nil {
		log.Printf("[WARN] rerank unavailable, falling back to fused order: %v", err)
		return fusedFallback(candidates, cfg.TopP), true
	}

	byKey := make(map[string]float64, len(scores))
	for _, s := range scores {
		byKey[s.RefKey] = s.Relevance
	}

	// fusedRank is the tie-break for equal relevance.
	type ranked struct {
		cand      store.RetrievalCandidate
		relevance float64
		fusedRank int
	}
	kept := make([]ranked, 0, len(candidates))
	for i, c := range candidates {
		rel, ok := byKey[c.RefKey]
		if !ok || rel < cfg.MinRelevance {
			continue
		}
		kept = append(kept, ranked{cand: c, relevance: rel, fusedRank: i})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].relevance != kept[j].relevance {
			return kept[i].relevance > kept[j].relevance
		}
		return kept[i].fusedRank < kept[j].fusedRank
	})

	if len(kept) > cfg.TopP {
		kept = kept[:cfg.TopP]
	}

	docs = make([]store.ScoredDocument, len(kept))
	for i, k := range kept {
		docs[i] = store.ScoredDocument{
			RetrievalCandidate: k.cand,
			Relevance:          k.relevance,
			Rank:               i,
		}
	}
	return docs, false
}

func callWithRetry(ctx context.Context, rr Reranker, cfg Config, query string, candidates []store.RetrievalCandidate) ([]Score, error) {
	call := func() ([]Score, error) {
		c, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		defer cancel()
		return rr.Rerank(c, query, candidates)
	}

	scores, err := call()
	if err == nil || ctx.Err() != nil {
		return scores, err
	}
	return call()
}

func fusedFallback(candidates []store.RetrievalCandidate, topP int) []store.ScoredDocument {
	if len(candidates) > topP {
		candidates = candidates[:topP]
	}
	docs := make([]store.ScoredDocument, len(candidates))
	for i, c := range candidates {
		docs[i] = store.ScoredDocument{
			RetrievalCandidate: c,
			Relevance:          c.FusedScore,
			Rank:               i,
		}
	}
	return docs
}
