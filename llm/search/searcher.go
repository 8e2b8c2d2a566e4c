// Package search implements the web-search escalation path: querying a
// search engine, fetching the result pages and distilling them into a
// context block for the model.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"askdoc/llm"
)

const (
	// ResultCount is the fixed number of search results requested per query.
	ResultCount = 5

	// RequestTimeout bounds every outbound search and page-fetch request.
	RequestTimeout = 10 * time.Second
)

// Item is a single search result.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Response is a raw search engine response.
type Response struct {
	Items []Item `json:"items"`
}

// Provider issues a search-engine query. Transport failures and non-2xx
// statuses surface as llm.ErrExternalService and are never retried here;
// retry policy, if any, belongs to the caller.
type Provider interface {
	Search(ctx context.Context, query string) (*Response, error)
}

// GoogleProvider queries the Google Custom Search JSON API.
type GoogleProvider struct {
	apiKey   string
	searchID string
	endpoint string
	client   *http.Client
}

// GoogleConfig holds Custom Search credentials.
type GoogleConfig struct {
	APIKey   string
	SearchID string
	Endpoint string
}

// DefaultGoogleConfig reads Custom Search credentials from the environment.
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		APIKey:   os.Getenv("SEARCH_API_KEY"),
		SearchID: os.Getenv("SEARCH_ID"),
	}
}

// NewGoogleProvider creates a Google Custom Search provider.
func NewGoogleProvider(cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.APIKey == "" || cfg.SearchID == "" {
		return nil, fmt.Errorf("%w: search API key and search engine ID are required", llm.ErrInvalidArgument)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://www.googleapis.com/customsearch/v1"
	}
	return &GoogleProvider{
		apiKey:   cfg.APIKey,
		searchID: cfg.SearchID,
		endpoint: endpoint,
		client:   &http.Client{Timeout: RequestTimeout},
	}, nil
}

// Search implements Provider.
func (p *GoogleProvider) Search(ctx context.Context, query string) (*Response, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", llm.ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.searchID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", ResultCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search request failed: %v", llm.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: search API returned status %d", llm.ErrExternalService, resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode search response: %v", llm.ErrExternalService, err)
	}
	return &result, nil
}
