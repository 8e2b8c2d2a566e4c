package rerank

import (
	"context"
	"fmt"
	"sort"

	"askdoc/llm"
)

// DefaultTopN is the number of documents kept after reranking.
const DefaultTopN = 5

// Scorer scores (query, text) pairs with a cross-encoder model. Scores are
// deterministic for fixed model weights and inputs, so reranking the same
// candidate set twice is idempotent.
type Scorer interface {
	// Score returns one relevance score per text, in input order.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Reranker runs the second retrieval stage: it rescores first-stage
// candidates pairwise against the query and keeps the best TopN.
type Reranker struct {
	scorer Scorer
	topN   int
}

// NewReranker creates a reranker over the given scorer. topN <= 0 selects
// the default.
func NewReranker(scorer Scorer, topN int) *Reranker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Reranker{scorer: scorer, topN: topN}
}

// Rerank scores every candidate against the query, orders them by descending
// relevance and truncates to TopN. The cross-encoder score is written into
// each surviving document's metadata as "relevance_score".
//
// An empty candidate set returns an empty result without touching the scorer,
// so no empty batch ever reaches the model. Ties keep their original relative
// order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []llm.SearchResult) ([]llm.RankedResult, error) {
	if len(candidates) == 0 {
		return []llm.RankedResult{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Document.Content
	}

	scores, err := r.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("reranking failed: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("scorer returned %d scores for %d documents", len(scores), len(candidates))
	}

	ranked := make([]llm.RankedResult, len(candidates))
	for i, c := range candidates {
		ranked[i] = llm.RankedResult{
			Document:  c.Document,
			Score:     c.Score,
			Relevance: scores[i],
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})

	if len(ranked) > r.topN {
		ranked = ranked[:r.topN]
	}

	for i := range ranked {
		if ranked[i].Document.Metadata == nil {
			ranked[i].Document.Metadata = make(map[string]interface{})
		}
		ranked[i].Document.Metadata["relevance_score"] = ranked[i].Relevance
	}

	return ranked, nil
}
