package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"askdoc/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleProviderRequiresCredentials(t *testing.T) {
	_, err := NewGoogleProvider(GoogleConfig{APIKey: "", SearchID: "cx"})
	assert.ErrorIs(t, err, llm.ErrInvalidArgument)

	_, err = NewGoogleProvider(GoogleConfig{APIKey: "key", SearchID: ""})
	assert.ErrorIs(t, err, llm.ErrInvalidArgument)
}

func TestGoogleProviderSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "test-cx", q.Get("cx"))
		assert.Equal(t, "golang concurrency", q.Get("q"))
		assert.Equal(t, "5", q.Get("num"))

		json.NewEncoder(w).Encode(Response{Items: []Item{
			{Title: "Go blog", Link: "https://go.dev/blog", Snippet: "Concurrency patterns"},
		}})
	}))
	defer srv.Close()

	p, err := NewGoogleProvider(GoogleConfig{APIKey: "test-key", SearchID: "test-cx", Endpoint: srv.URL})
	require.NoError(t, err)

	resp, err := p.Search(context.Background(), "golang concurrency")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "https://go.dev/blog", resp.Items[0].Link)
}

func TestGoogleProviderEmptyQuery(t *testing.T) {
	p, err := NewGoogleProvider(GoogleConfig{APIKey: "k", SearchID: "cx"})
	require.NoError(t, err)

	_, err = p.Search(context.Background(), "")
	assert.ErrorIs(t, err, llm.ErrInvalidArgument)
}

func TestGoogleProviderNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewGoogleProvider(GoogleConfig{APIKey: "k", SearchID: "cx", Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = p.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, llm.ErrExternalService)
}
