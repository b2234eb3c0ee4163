package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sarathi-be/pkg/rag/rerank"
	"sarathi-be/pkg/store"
)

// Client calls the Jina rerank API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

var _ rerank.Reranker = &Client{}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Detail string `json:"detail,omitempty"`
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/rerank",
		model:   "jina-reranker-v2-base-multilingual",
		http:    &http.Client{},
	}
}

func (c *Client) Rerank(ctx context.Context, query string, candidates []store.RetrievalCandidate) ([]rerank.Score, error) {
	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.Text
	}

	reqBody := rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: docs,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var jinaResp rerankResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	scores := make([]rerank.Score, 0, len(jinaResp.Results))
	for _, r := range jinaResp.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		scores = append(scores, rerank.Score{
			RefKey:    candidates[r.Index].RefKey,
			Relevance: r.RelevanceScore,
		})
	}
	return scores, nil
}
