// Package server exposes the ingestion and question-answering pipelines
// over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"askdoc/llm"
	"askdoc/llm/rag"
	"askdoc/llm/vector"

	"github.com/rs/zerolog"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	UploadDir      string
	RequestTimeout time.Duration
}

// Server routes HTTP requests into the RAG pipelines.
type Server struct {
	ingestor *rag.Ingestor
	pipeline *rag.Pipeline
	store    vector.Store
	cfg      Config
	log      zerolog.Logger
}

// New creates the HTTP server.
func New(ingestor *rag.Ingestor, pipeline *rag.Pipeline, store vector.Store, cfg Config, log zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "temp_uploads"
	}
	if cfg.RequestTimeout <= 0 {
		// The deadline spans both model calls and the search round-trip.
		cfg.RequestTimeout = 2 * time.Minute
	}
	return &Server{
		ingestor: ingestor,
		pipeline: pipeline,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /add_pdf_to_db", s.handleAddPDF)
	mux.HandleFunc("POST /question", s.handleQuestion)
	mux.HandleFunc("GET /collections", s.handleListCollections)
	mux.HandleFunc("DELETE /collections/{name}", s.handleDeleteCollection)
	return mux
}

// ListenAndServe runs the server until the listener fails or ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusFor maps the error taxonomy onto HTTP statuses. Internal detail is
// never exposed; handlers send only the human-readable reason.
func statusFor(err error) int {
	switch {
	case errors.Is(err, llm.ErrInvalidArgument),
		errors.Is(err, llm.ErrInvalidStartPage),
		errors.Is(err, llm.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, llm.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
