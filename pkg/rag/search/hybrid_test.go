package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"sarathi-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	byQuery map[string][]Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuery[query], nil
}

func res(key string, score float64) Result {
	return Result{RefKey: key, Text: "text " + key, Source: store.SourceMeta{Collection: "Bhagavad Gita"}, Score: score}
}

func cfg() Config {
	return Config{SemanticWeight: 0.6, KeywordWeight: 0.4, TopM: 20, CallTimeout: time.Second}
}

func TestRetrieveFusesChannels(t *testing.T) {
	sem := &fakeSearcher{byQuery: map[string][]Result{
		"q": {res("gita 2.47", 0.9), res("gita 2.14", 0.5)},
	}}
	kw := &fakeSearcher{byQuery: map[string][]Result{
		"q": {res("gita 2.47", 12.0), res("gita 18.66", 6.0)},
	}}

	r := NewHybridRetriever(sem, kw, cfg())
	got, deg, err := r.Retrieve(context.Background(), []string{"q"})
	require.NoError(t, err)
	assert.False(t, deg.Any())

	// gita 2.47 is top of both normalized lists: fused = 0.6*1 + 0.4*1.
	require.NotEmpty(t, got)
	assert.Equal(t, "gita 2.47", got[0].RefKey)
	assert.InDelta(t, 1.0, got[0].FusedScore, 1e-9)

	// Presence in one channel only contributes 0 for the other.
	for _, c := range got {
		if c.RefKey == "gita 18.66" {
			assert.Equal(t, 0.0, c.SemanticScore)
		}
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	sem := &fakeSearcher{byQuery: map[string][]Result{
		"a": {res("k1", 0.8), res("k2", 0.6), res("k3", 0.4)},
		"b": {res("k2", 0.9), res("k4", 0.3)},
	}}
	kw := &fakeSearcher{byQuery: map[string][]Result{
		"a": {res("k3", 5.0), res("k5", 2.0)},
		"b": {res("k1", 7.0)},
	}}

	r := NewHybridRetriever(sem, kw, cfg())
	first, _, err := r.Retrieve(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		again, _, err := r.Retrieve(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].RefKey, again[j].RefKey, "run %d rank %d", i, j)
			assert.Equal(t, first[j].FusedScore, again[j].FusedScore)
		}
	}
}

func TestRetrieveDedupByRefKey(t *testing.T) {
	sem := &fakeSearcher{byQuery: map[string][]Result{
		"a": {res("dup", 0.9), res("x", 0.2)},
		"b": {res("dup", 0.5), res("y", 0.4)},
	}}
	kw := &fakeSearcher{byQuery: map[string][]Result{
		"a": {res("dup", 3.0)},
		"b": nil,
	}}

	r := NewHybridRetriever(sem, kw, cfg())
	got, _, err := r.Retrieve(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	seen := map[string]int{}
	for _, c := range got {
		seen[c.RefKey]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "ref key %s appears %d times", key, n)
	}
}

func TestRetrieveTieBreakInsertionOrder(t *testing.T) {
	// Both candidates normalize to identical fused scores; the one
	// first seen (earlier query, semantic channel) must rank first.
	sem := &fakeSearcher{byQuery: map[string][]Result{
		"a": {res("first", 0.7)},
		"b": {res("second", 0.7)},
	}}
	kw := &fakeSearcher{byQuery: map[string][]Result{}}

	r := NewHybridRetriever(sem, kw, cfg())
	got, _, err := r.Retrieve(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].RefKey)
	assert.Equal(t, "second", got[1].RefKey)
}

func TestRetrieveKeywordChannelDown(t *testing.T) {
	sem := &fakeSearcher{byQuery: map[string][]Result{
		"q": {res("k1", 0.9), res("k2", 0.8), res("k3", 0.7), res("k4", 0.6), res("k5", 0.5)},
	}}
	kw := &fakeSearcher{err: errors.New("timeout")}

	r := NewHybridRetriever(sem, kw, cfg())
	got, deg, err := r.Retrieve(context.Background(), []string{"q"})
	require.NoError(t, err)
	assert.True(t, deg.KeywordFailed)
	assert.False(t, deg.SemanticFailed)
	require.Len(t, got, 5)

	// Fused ranking equals the semantic-only ranking.
	want := []string{"k1", "k2", "k3", "k4", "k5"}
	for i, c := range got {
		assert.Equal(t, want[i], c.RefKey)
		assert.Equal(t, 0.0, c.KeywordScore)
	}
}

func TestRetrieveAllChannelsDown(t *testing.T) {
	sem := &fakeSearcher{err: errors.New("down")}
	kw := &fakeSearcher{err: errors.New("down")}

	r := NewHybridRetriever(sem, kw, cfg())
	_, deg, err := r.Retrieve(context.Background(), []string{"q"})
	assert.ErrorIs(t, err, ErrAllChannelsFailed)
	assert.True(t, deg.SemanticFailed)
	assert.True(t, deg.KeywordFailed)
}

func TestRetrieveRetriesOnce(t *testing.T) {
	sem := &fakeSearcher{err: errors.New("flaky")}
	kw := &fakeSearcher{byQuery: map[string][]Result{"q": {res("k1", 1.0)}}}

	r := NewHybridRetriever(sem, kw, cfg())
	_, _, err := r.Retrieve(context.Background(), []string{"q"})
	require.NoError(t, err)
	assert.Equal(t, 2, sem.calls, "failed call should be retried exactly once")
	assert.Equal(t, 1, kw.calls)
}

func TestRetrieveTopM(t *testing.T) {
	many := make([]Result, 0, 30)
	for i := 0; i < 30; i++ {
		many = append(many, res(refKeyN(i), float64(30-i)))
	}
	sem := &fakeSearcher{byQuery: map[string][]Result{"q": many}}
	kw := &fakeSearcher{byQuery: map[string][]Result{}}

	c := cfg()
	c.TopM = 20
	r := NewHybridRetriever(sem, kw, c)
	got, _, err := r.Retrieve(context.Background(), []string{"q"})
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func refKeyN(i int) string {
	return "key-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestNormalizeConstantList(t *testing.T) {
	got := normalize([]Result{res("a", 0.5), res("b", 0.5)})
	assert.Equal(t, []float64{1.0, 1.0}, got)
}
