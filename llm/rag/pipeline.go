package rag

import (
	"context"
	"fmt"
	"strings"

	"askdoc/llm"
	"askdoc/llm/rerank"
	"askdoc/llm/vector"
	"askdoc/pubsub"

	"github.com/rs/zerolog"
)

// Answerer produces the final answer for a question given assembled context.
type Answerer interface {
	Run(ctx context.Context, query, contextBlock string) (string, error)
}

// Pipeline is the query path: validate, retrieve, rerank, answer.
type Pipeline struct {
	store    vector.Store
	reranker *rerank.Reranker
	agent    Answerer
	events   pubsub.Publisher[pubsub.Notice]
	log      zerolog.Logger
	topK     int
}

// NewPipeline creates a query pipeline. topK <= 0 selects the retriever
// default; events may be nil.
func NewPipeline(store vector.Store, reranker *rerank.Reranker, agent Answerer, events pubsub.Publisher[pubsub.Notice], log zerolog.Logger, topK int) *Pipeline {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}
	return &Pipeline{
		store:    store,
		reranker: reranker,
		agent:    agent,
		events:   events,
		log:      log,
		topK:     topK,
	}
}

// Answer handles one question against one collection.
//
// Validation is strict and happens before any retrieval or model work: a
// missing collection name or question fails with llm.ErrInvalidArgument, an
// unknown collection with llm.ErrNotFound. No partial work is done on a
// rejected request.
func (p *Pipeline) Answer(ctx context.Context, collection, question string) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("%w: collection name is required", llm.ErrInvalidArgument)
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", llm.ErrInvalidArgument)
	}

	handle, err := p.store.Open(ctx, collection)
	if err != nil {
		return "", err
	}

	p.publish(pubsub.QuestionReceived, collection, question)

	retrieved, err := handle.Search(ctx, question, p.topK)
	if err != nil {
		return "", err
	}

	ranked, err := p.reranker.Rerank(ctx, question, retrieved)
	if err != nil {
		return "", err
	}

	p.log.Debug().
		Str("collection", collection).
		Int("retrieved", len(retrieved)).
		Int("ranked", len(ranked)).
		Msg("context assembled")

	answer, err := p.agent.Run(ctx, question, joinContext(ranked))
	if err != nil {
		return "", err
	}

	p.publish(pubsub.AnswerReady, collection, question)
	return answer, nil
}

// joinContext concatenates the surviving chunk texts with the fixed
// separator. The context is rebuilt per request and never persisted.
func joinContext(ranked []llm.RankedResult) string {
	texts := make([]string, len(ranked))
	for i, r := range ranked {
		texts[i] = r.Document.Content
	}
	return strings.Join(texts, llm.ContextSeparator)
}

func (p *Pipeline) publish(t pubsub.EventType, collection, detail string) {
	if p.events == nil {
		return
	}
	p.events.Publish(t, pubsub.Notice{Collection: collection, Detail: detail})
}
