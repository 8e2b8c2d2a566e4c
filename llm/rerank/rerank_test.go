package rerank

import (
	"context"
	"errors"
	"testing"

	"askdoc/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct {
	scores []float64
	err    error
	calls  int
}

func (s *fakeScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.scores != nil {
		return s.scores, nil
	}
	return make([]float64, len(texts)), nil
}

func candidates(contents ...string) []llm.SearchResult {
	out := make([]llm.SearchResult, len(contents))
	for i, c := range contents {
		out[i] = llm.SearchResult{
			Document: llm.Document{ID: c, Content: c},
			Score:    0.5,
		}
	}
	return out
}

func TestRerankOrdersByDescendingRelevance(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.1, 0.9, 0.5}}
	r := NewReranker(scorer, DefaultTopN)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c"))
	require.NoError(t, err)

	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].Document.ID)
	assert.Equal(t, "c", ranked[1].Document.ID)
	assert.Equal(t, "a", ranked[2].Document.ID)
	assert.Equal(t, 0.9, ranked[0].Relevance)
}

func TestRerankTruncatesToTopN(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.1, 0.9, 0.5, 0.7}}
	r := NewReranker(scorer, 2)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c", "d"))
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Document.ID)
	assert.Equal(t, "d", ranked[1].Document.ID)
}

func TestRerankTiesKeepOriginalOrder(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.5, 0.5, 0.5}}
	r := NewReranker(scorer, DefaultTopN)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c"))
	require.NoError(t, err)

	require.Len(t, ranked, 3)
	assert.Equal(t, "a", ranked[0].Document.ID)
	assert.Equal(t, "b", ranked[1].Document.ID)
	assert.Equal(t, "c", ranked[2].Document.ID)
}

func TestRerankAnnotatesMetadata(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.3}}
	r := NewReranker(scorer, DefaultTopN)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a"))
	require.NoError(t, err)

	require.Len(t, ranked, 1)
	assert.Equal(t, 0.3, ranked[0].Document.Metadata["relevance_score"])
}

func TestRerankEmptyInputSkipsScorer(t *testing.T) {
	scorer := &fakeScorer{}
	r := NewReranker(scorer, DefaultTopN)

	ranked, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Empty(t, ranked)
	assert.NotNil(t, ranked)
	assert.Zero(t, scorer.calls, "empty candidate set must not reach the scorer")
}

func TestRerankScorerErrorPropagates(t *testing.T) {
	scoreErr := errors.New("model unavailable")
	r := NewReranker(&fakeScorer{err: scoreErr}, DefaultTopN)

	_, err := r.Rerank(context.Background(), "q", candidates("a"))
	assert.ErrorIs(t, err, scoreErr)
}

func TestRerankScoreCountMismatch(t *testing.T) {
	r := NewReranker(&fakeScorer{scores: []float64{0.1}}, DefaultTopN)

	_, err := r.Rerank(context.Background(), "q", candidates("a", "b"))
	assert.Error(t, err)
}
