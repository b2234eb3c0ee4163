package store

// SourceMeta describes where a passage came from.
type SourceMeta struct {
	Collection string   `json:"collection"` // e.g. "Bhagavad Gita"
	Tags       []string `json:"tags,omitempty"`
}

// RetrievalCandidate is a passage surfaced by the hybrid retriever.
// RefKey is globally unique (e.g. "bhagavad-gita 2.47") and is the
// dedup key for fusion: no two candidates in a fused list share one.
type RetrievalCandidate struct {
	RefKey        string     `json:"ref_key"`
	Text          string     `json:"text"`
	Source        SourceMeta `json:"source"`
	SemanticScore float64    `json:"semantic_score"`
	KeywordScore  float64    `json:"keyword_score"`
	FusedScore    float64    `json:"fused_score"`
}

// ScoredDocument is a candidate after reranking. Rank is the final
// position; ties on relevance fall back to the fused order.
type ScoredDocument struct {
	RetrievalCandidate
	Relevance float64 `json:"relevance"`
	Rank      int     `json:"rank"`
}
