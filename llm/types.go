package llm

// ContextSeparator delimits the blocks of model context: retrieved chunk
// texts, collected web-source texts, and the web-sources section itself.
const ContextSeparator = "\n===========\n"

// Document is one indexed chunk of a source document. A document is created
// during ingestion, owned by exactly one collection, and never mutated
// afterwards.
type Document struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Source     string                 `json:"source"`
	Collection string                 `json:"collection"`
	ChunkIndex int                    `json:"chunk_index"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  string                 `json:"created_at"`
}

// SearchResult pairs a document with its vector similarity score.
// Results are ephemeral and scoped to a single query.
type SearchResult struct {
	Document Document
	Score    float32
}

// RankedResult is a search result that survived cross-encoder reranking.
// Relevance is the cross-encoder score; it is also written into the
// document metadata under "relevance_score".
type RankedResult struct {
	Document  Document
	Score     float32
	Relevance float64
}
