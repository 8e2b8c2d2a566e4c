package rag

import (
	"context"
	"strings"
	"testing"

	"askdoc/llm"
	"askdoc/llm/vector"
	"askdoc/pubsub"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIngestor(store *fakeStore, events pubsub.Publisher[pubsub.Notice]) *Ingestor {
	cfg := vector.ChunkConfig{ChunkSize: 200, ChunkOverlap: 50, MinChunkSize: 10, SplitByParagraph: true}
	return NewIngestor(store, cfg, events, zerolog.Nop())
}

func TestIngestTextWritesChunks(t *testing.T) {
	store := newFakeStore()
	in := testIngestor(store, nil)

	text := strings.Repeat("Предложение о чём-то важном. ", 20)
	n, err := in.IngestText(context.Background(), text, "docs", true)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	docs := store.added["docs"]
	require.Len(t, docs, n)
	assert.True(t, store.overwrites["docs"])

	for i, doc := range docs {
		assert.Equal(t, "docs", doc.Collection)
		assert.Equal(t, "inline", doc.Source)
		assert.Equal(t, i, doc.ChunkIndex)
		assert.NotEmpty(t, doc.Content)
	}
}

func TestIngestTextValidation(t *testing.T) {
	store := newFakeStore()
	in := testIngestor(store, nil)

	_, err := in.IngestText(context.Background(), "text", "", true)
	assert.ErrorIs(t, err, llm.ErrInvalidArgument)

	_, err = in.IngestText(context.Background(), "   ", "docs", true)
	assert.ErrorIs(t, err, llm.ErrInvalidArgument)

	assert.Empty(t, store.added)
}

func TestIngestTextAppendMode(t *testing.T) {
	store := newFakeStore("docs")
	in := testIngestor(store, nil)

	_, err := in.IngestText(context.Background(), "Новый документ для добавления в коллекцию.", "docs", false)
	require.NoError(t, err)
	assert.False(t, store.overwrites["docs"])
}

func TestIngestPDFMissingFile(t *testing.T) {
	store := newFakeStore()
	in := testIngestor(store, nil)

	_, err := in.IngestPDF(context.Background(), "/nonexistent/file.pdf", "docs", 1, true)
	assert.ErrorIs(t, err, llm.ErrNotFound)
	assert.Empty(t, store.added)
}

func TestIngestPublishesLifecycleEvents(t *testing.T) {
	broker := pubsub.NewBroker[pubsub.Notice]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	store := newFakeStore()
	in := testIngestor(store, broker)

	_, err := in.IngestText(context.Background(), "Какой-то достаточно длинный текст для индексации.", "docs", true)
	require.NoError(t, err)

	event := <-events
	assert.Equal(t, pubsub.IngestFinished, event.Type)
	assert.Equal(t, "docs", event.Payload.Collection)
}
