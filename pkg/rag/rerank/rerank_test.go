package rerank

import (
	"context"
	"errors"
	"testing"
	"time"

	"sarathi-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReranker struct {
	scores []Score
	err    error
	calls  int
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, candidates []store.RetrievalCandidate) ([]Score, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func cand(key string, fused float64) store.RetrievalCandidate {
	return store.RetrievalCandidate{RefKey: key, Text: "text " + key, FusedScore: fused}
}

func testCfg() Config {
	return Config{TopP: 3, MinRelevance: 0.4, CallTimeout: time.Second}
}

func TestApplyThresholdDropsNeverPads(t *testing.T) {
	rr := &fakeReranker{scores: []Score{
		{RefKey: "a", Relevance: 0.9},
		{RefKey: "b", Relevance: 0.39}, // below threshold
		{RefKey: "c", Relevance: 0.5},
	}}

	docs, degraded := Apply(context.Background(), rr, testCfg(), "q",
		[]store.RetrievalCandidate{cand("a", 0.9), cand("b", 0.8), cand("c", 0.7)})

	require.False(t, degraded)
	require.Len(t, docs, 2, "below-threshold candidate must be dropped, not padded")
	assert.Equal(t, "a", docs[0].RefKey)
	assert.Equal(t, "c", docs[1].RefKey)
	assert.Equal(t, 0, docs[0].Rank)
	assert.Equal(t, 1, docs[1].Rank)
}

func TestApplyAllBelowThreshold(t *testing.T) {
	rr := &fakeReranker{scores: []Score{
		{RefKey: "a", Relevance: 0.1},
		{RefKey: "b", Relevance: 0.2},
	}}

	docs, degraded := Apply(context.Background(), rr, testCfg(), "q",
		[]store.RetrievalCandidate{cand("a", 0.9), cand("b", 0.8)})
	assert.False(t, degraded)
	assert.Empty(t, docs, "zero passages is a legitimate outcome")
}

func TestApplyTieBreaksOnFusedRank(t *testing.T) {
	rr := &fakeReranker{scores: []Score{
		{RefKey: "a", Relevance: 0.7},
		{RefKey: "b", Relevance: 0.7},
	}}

	// b precedes a in fused order, so on equal relevance b ranks first.
	docs, _ := Apply(context.Background(), rr, testCfg(), "q",
		[]store.RetrievalCandidate{cand("b", 0.9), cand("a", 0.8)})
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].RefKey)
	assert.Equal(t, "a", docs[1].RefKey)
}

func TestApplyTopP(t *testing.T) {
	rr := &fakeReranker{scores: []Score{
		{RefKey: "a", Relevance: 0.9},
		{RefKey: "b", Relevance: 0.8},
		{RefKey: "c", Relevance: 0.7},
		{RefKey: "d", Relevance: 0.6},
	}}

	docs, _ := Apply(context.Background(), rr, testCfg(), "q",
		[]store.RetrievalCandidate{cand("a", 1), cand("b", 1), cand("c", 1), cand("d", 1)})
	assert.Len(t, docs, 3)
}

func TestApplyFailureFallsBackToFusedOrder(t *testing.T) {
	rr := &fakeReranker{err: errors.New("rerank service down")}

	fused := []store.RetrievalCandidate{cand("a", 0.9), cand("b", 0.8), cand("c", 0.7), cand("d", 0.6)}
	docs, degraded := Apply(context.Background(), rr, testCfg(), "q", fused)

	assert.True(t, degraded)
	assert.Equal(t, 2, rr.calls, "reranker should be retried exactly once")
	require.Len(t, docs, 3, "fallback truncates to TopP")
	assert.Equal(t, "a", docs[0].RefKey)
	assert.Equal(t, "b", docs[1].RefKey)
	assert.Equal(t, "c", docs[2].RefKey)
}

func TestApplyUnknownScoredKeyIgnored(t *testing.T) {
	rr := &fakeReranker{scores: []Score{
		{RefKey: "ghost", Relevance: 0.99},
		{RefKey: "a", Relevance: 0.8},
	}}

	docs, _ := Apply(context.Background(), rr, testCfg(), "q",
		[]store.RetrievalCandidate{cand("a", 0.9)})
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].RefKey)
}

func TestApplyEmptyCandidates(t *testing.T) {
	rr := &fakeReranker{}
	docs, degraded := Apply(context.Background(), rr, testCfg(), "q", nil)
	assert.Empty(t, docs)
	assert.False(t, degraded)
	assert.Equal(t, 0, rr.calls)
}
