package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"askdoc/llm"
)

const scorerTimeout = 30 * time.Second

// HTTPScorer scores pairs against a cross-encoder served over HTTP with the
// common rerank API shape (POST /rerank with query and documents, scored
// results keyed by input index). Transport failures and non-2xx statuses
// surface as llm.ErrExternalService; no retries happen here.
type HTTPScorer struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// HTTPScorerConfig configures the rerank endpoint.
type HTTPScorerConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// DefaultHTTPScorerConfig returns scorer configuration from environment
// variables.
func DefaultHTTPScorerConfig() HTTPScorerConfig {
	baseURL := os.Getenv("RERANKER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8580"
	}
	model := os.Getenv("RERANKER_MODEL")
	if model == "" {
		model = "BAAI/bge-reranker-large"
	}
	return HTTPScorerConfig{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  os.Getenv("RERANKER_API_KEY"),
	}
}

// NewHTTPScorer creates a scorer client for the given endpoint.
func NewHTTPScorer(cfg HTTPScorerConfig) *HTTPScorer {
	return &HTTPScorer{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: scorerTimeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score implements Scorer.
func (s *HTTPScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	payload, err := json.Marshal(rerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: rerank request failed: %v", llm.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: rerank endpoint returned status %d: %s", llm.ErrExternalService, resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode rerank response: %v", llm.ErrExternalService, err)
	}

	scores := make([]float64, len(texts))
	seen := 0
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("%w: rerank response references document %d of %d", llm.ErrExternalService, r.Index, len(texts))
		}
		scores[r.Index] = r.RelevanceScore
		seen++
	}
	if seen != len(texts) {
		return nil, fmt.Errorf("%w: rerank response scored %d of %d documents", llm.ErrExternalService, seen, len(texts))
	}

	return scores, nil
}
