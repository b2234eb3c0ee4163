package search

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"sarathi-be/pkg/store"
)

// Config holds the fusion parameters.
type Config struct {
	SemanticWeight float64
	KeywordWeight  float64
	SemanticK      int
	KeywordK       int
	TopM           int
	CallTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.SemanticWeight <= 0 && c.KeywordWeight <= 0 {
		c.SemanticWeight = 0.6
		c.KeywordWeight = 0.4
	}
	if c.SemanticK <= 0 {
		c.SemanticK = 10
	}
	if c.KeywordK <= 0 {
		c.KeywordK = 10
	}
	if c.TopM <= 0 {
		c.TopM = 20
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	return c
}

// Degradation reports which channels failed for the whole turn.
type Degradation struct {
	SemanticFailed bool
	KeywordFailed  bool
}

func (d Degradation) Any() bool {
	return d.SemanticFailed || d.KeywordFailed
}

// ErrAllChannelsFailed means neither channel produced a single list.
var ErrAllChannelsFailed = errors.New("all retrieval channels failed")

// HybridRetriever fans out both channels across every expanded query,
// joins the lists and fuses them into one deduplicated ranking.
type HybridRetriever struct {
	semantic SemanticSearcher
	keyword  KeywordSearcher
	cfg      Config
}

func NewHybridRetriever(semantic SemanticSearcher, keyword KeywordSearcher, cfg Config) *HybridRetriever {
	return &HybridRetriever{semantic: semantic, keyword: keyword, cfg: cfg.withDefaults()}
}

const (
	channelSemantic = 0
	channelKeyword  = 1
)

// Retrieve runs 2*len(queries) searches concurrently, each bounded by
// a per-call timeout with one retry on transient failure, and returns
// the top-M fused candidates. One channel being fully down degrades
// the result instead of failing the turn.
func (r *HybridRetriever) Retrieve(ctx context.Context, queries []string) ([]store.RetrievalCandidate, Degradation, error) {
	type slot struct {
		results []Result
		err     error
	}

	// Slot layout keeps the join deterministic: query order, semantic
	// before keyword.
	slots := make([]slot, len(queries)*2)

	var wg sync.WaitGroup
	for qi, q := range queries {
		wg.Add(2)

		go func(idx int, query string) {
			defer wg.Done()
			res, err := r.callWithRetry(ctx, func(c context.Context) ([]Result, error) {
				return r.semantic.Search(c, query, r.cfg.SemanticK)
			})
			slots[idx] = slot{results: res, err: err}
		}(qi*2+channelSemantic, q)

		go func(idx int, query string) {
			defer wg.Done()
			res, err := r.callWithRetry(ctx, func(c context.Context) ([]Result, error) {
				return r.keyword.Search(c, query, r.cfg.KeywordK)
			})
			slots[idx] = slot{results: res, err: err}
		}(qi*2+channelKeyword, q)
	}
	wg.Wait()

	var deg Degradation
	semanticOK, keywordOK := false, false
	lists := make([][]Result, len(slots))
	for i, s := range slots {
		if s.err != nil {
			log.Printf("[WARN] retrieval channel %d query %d failed: %v", i%2, i/2, s.err)
			continue
		}
		lists[i] = s.results
		if i%2 == channelSemantic {
			semanticOK = true
		} else {
			keywordOK = true
		}
	}
	deg.SemanticFailed = !semanticOK
	deg.KeywordFailed = !keywordOK

	if !semanticOK && !keywordOK {
		return nil, deg, ErrAllChannelsFailed
	}

	return r.fuse(lists), deg, nil
}

func (r *HybridRetriever) callWithRetry(ctx context.Context, fn func(context.Context) ([]Result, error)) ([]Result, error) {
	call := func() ([]Result, error) {
		c, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
		return fn(c)
	}

	res, err := call()
	if err == nil || ctx.Err() != nil {
		return res, err
	}
	// One bounded retry on transient failure.
	return call()
}

type fusionEntry struct {
	refKey    string
	text      string
	source    store.SourceMeta
	bestSem   float64
	bestKw    float64
	firstSeen int
}

// fuse normalizes each list independently, takes each candidate's best
// score per channel across all queries, and combines them with the
// configured weights. Dedup keeps the maximum fused score per ref key;
// ties in the final sort break by insertion order.
func (r *HybridRetriever) fuse(lists [][]Result) []store.RetrievalCandidate {
	entries := make(map[string]*fusionEntry)
	order := 0

	for li, list := range lists {
		if len(list) == 0 {
			continue
		}
		normalized := normalize(list)
		isSemantic := li%2 == channelSemantic

		for i, res := range list {
			e, ok := entries[res.RefKey]
			if !ok {
				e = &fusionEntry{
					refKey:    res.RefKey,
					text:      res.Text,
					source:    res.Source,
					firstSeen: order,
				}
				entries[res.RefKey] = e
				order++
			}
			score := normalized[i]
			if isSemantic {
				if score > e.bestSem {
					e.bestSem = score
				}
			} else {
				if score > e.bestKw {
					e.bestKw = score
				}
			}
		}
	}

	fused := make([]store.RetrievalCandidate, 0, len(entries))
	seen := make([]*fusionEntry, 0, len(entries))
	for _, e := range entries {
		seen = append(seen, e)
	}
	sort.Slice(seen, func(i, j int) bool {
		fi := r.cfg.SemanticWeight*seen[i].bestSem + r.cfg.KeywordWeight*seen[i].bestKw
		fj := r.cfg.SemanticWeight*seen[j].bestSem + r.cfg.KeywordWeight*seen[j].bestKw
		if fi != fj {
			return fi > fj
		}
		return seen[i].firstSeen < seen[j].firstSeen
	})

	for _, e := range seen {
		fused = append(fused, store.RetrievalCandidate{
			RefKey:        e.refKey,
			Text:          e.text,
			Source:        e.source,
			SemanticScore: e.bestSem,
			KeywordScore:  e.bestKw,
			FusedScore:    r.cfg.SemanticWeight*e.bestSem + r.cfg.KeywordWeight*e.bestKw,
		})
		if len(fused) == r.cfg.TopM {
			break
		}
	}
	return fused
}

// normalize min-max scales a list's scores to [0,1]. A constant list
// maps to 1.0 so a lone perfect-tie result still counts fully.
func normalize(list []Result) []float64 {
	min, max := list[0].Score, list[0].Score
	for _, r := range list[1:] {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}

	out := make([]float64, len(list))
	if max == min {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, r := range list {
		out[i] = (r.Score - min) / (max - min)
	}
	return out
}
