// Package rag wires the retrieval pipeline together: ingestion of source
// documents into collections, and the retrieve-rerank-answer path for
// questions.
package rag

import (
	"context"
	"fmt"
	"strings"

	"askdoc/llm"
	"askdoc/llm/parser"
	"askdoc/llm/vector"
	"askdoc/pubsub"

	"github.com/rs/zerolog"
)

// Ingestor turns source documents into indexed collection chunks.
type Ingestor struct {
	store    vector.Store
	chunkCfg vector.ChunkConfig
	events   pubsub.Publisher[pubsub.Notice]
	log      zerolog.Logger
}

// NewIngestor creates an ingestor over the given store. events may be nil.
func NewIngestor(store vector.Store, chunkCfg vector.ChunkConfig, events pubsub.Publisher[pubsub.Notice], log zerolog.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		chunkCfg: chunkCfg,
		events:   events,
		log:      log,
	}
}

// IngestPDF extracts text from a PDF starting at the 1-based startPage,
// chunks it and writes the chunks into the named collection. The overwrite
// flag is required: true replaces the collection, false appends to it.
// Returns the number of chunks written.
//
// An error aborts only this file; callers processing a batch report the
// failure per file and move on.
func (in *Ingestor) IngestPDF(ctx context.Context, filePath, collection string, startPage int, overwrite bool) (int, error) {
	if collection == "" {
		return 0, fmt.Errorf("%w: collection name must not be empty", llm.ErrInvalidArgument)
	}

	in.publish(pubsub.IngestStarted, collection, filePath, "", nil)

	text, err := parser.ExtractPDFText(filePath, startPage)
	if err != nil {
		in.publish(pubsub.IngestFailed, collection, filePath, "", err)
		return 0, err
	}

	n, err := in.ingestText(ctx, text, filePath, collection, overwrite)
	if err != nil {
		in.publish(pubsub.IngestFailed, collection, filePath, "", err)
		return 0, err
	}

	in.publish(pubsub.IngestFinished, collection, filePath, fmt.Sprintf("%d chunks", n), nil)
	return n, nil
}

// IngestText writes raw text into the named collection, chunked the same
// way PDF text is.
func (in *Ingestor) IngestText(ctx context.Context, text, collection string, overwrite bool) (int, error) {
	if collection == "" {
		return 0, fmt.Errorf("%w: collection name must not be empty", llm.ErrInvalidArgument)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: text must not be empty", llm.ErrInvalidArgument)
	}

	n, err := in.ingestText(ctx, text, "inline", collection, overwrite)
	if err != nil {
		in.publish(pubsub.IngestFailed, collection, "inline", "", err)
		return 0, err
	}

	in.publish(pubsub.IngestFinished, collection, "inline", fmt.Sprintf("%d chunks", n), nil)
	return n, nil
}

func (in *Ingestor) ingestText(ctx context.Context, text, source, collection string, overwrite bool) (int, error) {
	chunks := vector.ChunkText(text, in.chunkCfg)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: source %q", llm.ErrEmptyDocument, source)
	}

	docs := make([]llm.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = llm.Document{
			Content:    chunk.Content,
			Source:     source,
			Collection: collection,
			ChunkIndex: chunk.ChunkIndex,
		}
	}

	if err := in.store.Add(ctx, collection, docs, overwrite); err != nil {
		return 0, err
	}

	in.log.Debug().Str("collection", collection).Str("source", source).Int("chunks", len(docs)).Msg("chunks indexed")
	return len(docs), nil
}

func (in *Ingestor) publish(t pubsub.EventType, collection, source, detail string, err error) {
	if in.events == nil {
		return
	}
	in.events.Publish(t, pubsub.Notice{
		Collection: collection,
		Source:     source,
		Detail:     detail,
		Err:        err,
	})
}
