package rag

import (
	"context"
	"errors"
	"testing"

	"askdoc/llm"
	"askdoc/llm/rerank"
	"askdoc/llm/vector"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps collections in memory and hands out canned search results.
type fakeStore struct {
	collections map[string][]llm.SearchResult
	added       map[string][]llm.Document
	overwrites  map[string]bool
	addErr      error
	searches    int
}

func newFakeStore(collections ...string) *fakeStore {
	s := &fakeStore{
		collections: make(map[string][]llm.SearchResult),
		added:       make(map[string][]llm.Document),
		overwrites:  make(map[string]bool),
	}
	for _, name := range collections {
		s.collections[name] = nil
	}
	return s
}

func (s *fakeStore) Add(_ context.Context, name string, docs []llm.Document, overwrite bool) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added[name] = append(s.added[name], docs...)
	s.overwrites[name] = overwrite
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

func (s *fakeStore) List(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeStore) Delete(_ context.Context, name string) error {
	if _, ok := s.collections[name]; !ok {
		return llm.ErrNotFound
	}
	delete(s.collections, name)
	return nil
}

func (s *fakeStore) Open(_ context.Context, name string) (vector.Searcher, error) {
	results, ok := s.collections[name]
	if !ok {
		return nil, llm.ErrNotFound
	}
	return &fakeSearcher{store: s, results: results}, nil
}

func (s *fakeStore) Count(_ context.Context, name string) (int64, error) {
	results, ok := s.collections[name]
	if !ok {
		return 0, llm.ErrNotFound
	}
	return int64(len(results)), nil
}

func (s *fakeStore) Close() error { return nil }

type fakeSearcher struct {
	store   *fakeStore
	results []llm.SearchResult
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]llm.SearchResult, error) {
	f.store.searches++
	return f.results, nil
}

// identityScorer scores each chunk by its position, descending.
type identityScorer struct{}

func (identityScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i := range texts {
		scores[i] = float64(len(texts) - i)
	}
	return scores, nil
}

type fakeAnswerer struct {
	answer   string
	err      error
	contexts []string
}

func (a *fakeAnswerer) Run(_ context.Context, _ string, contextBlock string) (string, error) {
	a.contexts = append(a.contexts, contextBlock)
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

func searchHits(contents ...string) []llm.SearchResult {
	out := make([]llm.SearchResult, len(contents))
	for i, c := range contents {
		out[i] = llm.SearchResult{Document: llm.Document{ID: c, Content: c}, Score: 0.9}
	}
	return out
}

func newTestPipeline(store *fakeStore, answerer *fakeAnswerer) *Pipeline {
	reranker := rerank.NewReranker(identityScorer{}, rerank.DefaultTopN)
	return NewPipeline(store, reranker, answerer, nil, zerolog.Nop(), vector.DefaultTopK)
}

func TestAnswerHappyPath(t *testing.T) {
	store := newFakeStore("docs")
	store.collections["docs"] = searchHits("фрагмент один", "фрагмент два")
	answerer := &fakeAnswerer{answer: "готовый ответ"}

	p := newTestPipeline(store, answerer)

	answer, err := p.Answer(context.Background(), "docs", "вопрос?")
	require.NoError(t, err)
	assert.Equal(t, "готовый ответ", answer)

	require.Len(t, answerer.contexts, 1)
	assert.Contains(t, answerer.contexts[0], "фрагмент один")
	assert.Contains(t, answerer.contexts[0], "фрагмент два")
	assert.Contains(t, answerer.contexts[0], llm.ContextSeparator)
}

func TestAnswerValidatesBeforeAnyWork(t *testing.T) {
	store := newFakeStore("docs")
	answerer := &fakeAnswerer{answer: "unused"}
	p := newTestPipeline(store, answerer)

	_, err := p.Answer(context.Background(), "", "вопрос?")
	assert.ErrorIs(t, err, llm.ErrInvalidArgument)

	_, err = p.Answer(context.Background(), "docs", "   ")
	assert.ErrorIs(t, err, llm.ErrInvalidArgument)

	assert.Zero(t, store.searches, "rejected requests must not reach retrieval")
	assert.Empty(t, answerer.contexts, "rejected requests must not reach the model")
}

func TestAnswerUnknownCollection(t *testing.T) {
	store := newFakeStore()
	answerer := &fakeAnswerer{answer: "unused"}
	p := newTestPipeline(store, answerer)

	_, err := p.Answer(context.Background(), "ghost", "вопрос?")
	assert.ErrorIs(t, err, llm.ErrNotFound)
	assert.Zero(t, store.searches)
	assert.Empty(t, answerer.contexts)
}

func TestAnswerEmptyRetrievalStillAnswers(t *testing.T) {
	store := newFakeStore("docs")
	answerer := &fakeAnswerer{answer: "ответ без контекста"}
	p := newTestPipeline(store, answerer)

	answer, err := p.Answer(context.Background(), "docs", "вопрос?")
	require.NoError(t, err)
	assert.Equal(t, "ответ без контекста", answer)

	require.Len(t, answerer.contexts, 1)
	assert.Equal(t, "", answerer.contexts[0])
}

func TestAnswerPropagatesAgentError(t *testing.T) {
	store := newFakeStore("docs")
	store.collections["docs"] = searchHits("x")
	agentErr := errors.New("model offline")
	p := newTestPipeline(store, &fakeAnswerer{err: agentErr})

	_, err := p.Answer(context.Background(), "docs", "вопрос?")
	assert.ErrorIs(t, err, agentErr)
}
