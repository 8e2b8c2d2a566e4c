package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"askdoc/llm/agent"
	"askdoc/llm/providers"
	"askdoc/llm/rag"
	"askdoc/llm/rerank"
	"askdoc/llm/search"
	"askdoc/llm/vector"
	"askdoc/pubsub"
	"askdoc/server"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func init() {
	// Load .env file if exists
	_ = godotenv.Load()
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := providers.CreateEmbeddingModel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create embedding model")
	}

	chatModel, err := providers.CreateChatModel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create chat model")
	}

	store, err := vector.NewRedisStore(ctx, embedder, vector.DefaultStoreConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to vector store")
	}
	defer store.Close()

	reranker := rerank.NewReranker(rerank.NewHTTPScorer(rerank.DefaultHTTPScorerConfig()), rerank.DefaultTopN)

	bridge := search.NewBridge(newSearchProvider(log), search.NewCollector(search.PageFormat(os.Getenv("WEB_CONTENT_FORMAT"))))

	events := pubsub.NewBroker[pubsub.Notice]()
	defer events.Shutdown()
	go logEvents(ctx, events, log)

	qa := agent.New(chatModel, bridge, events, log)
	pipeline := rag.NewPipeline(store, reranker, qa, events, log, vector.DefaultTopK)
	ingestor := rag.NewIngestor(store, vector.DefaultChunkConfig(), events, log)

	srv := server.New(ingestor, pipeline, store, server.Config{
		Addr:      getEnv("HTTP_ADDR", ":8080"),
		UploadDir: getEnv("UPLOAD_DIR", "temp_uploads"),
	}, log)

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// newSearchProvider picks Google Custom Search when credentials are
// configured and falls back to DuckDuckGo Lite otherwise.
func newSearchProvider(log zerolog.Logger) search.Provider {
	google, err := search.NewGoogleProvider(search.DefaultGoogleConfig())
	if err != nil {
		log.Warn().Msg("search API credentials not configured, using DuckDuckGo fallback")
		return search.NewDuckDuckGoProvider()
	}
	return google
}

// logEvents drains pipeline lifecycle events into the log.
func logEvents(ctx context.Context, events *pubsub.Broker[pubsub.Notice], log zerolog.Logger) {
	for event := range events.Subscribe(ctx) {
		entry := log.Info()
		if event.Payload.Err != nil {
			entry = log.Error().Err(event.Payload.Err)
		}
		entry.
			Str("event", string(event.Type)).
			Str("collection", event.Payload.Collection).
			Str("source", event.Payload.Source).
			Str("detail", event.Payload.Detail).
			Msg("pipeline event")
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
