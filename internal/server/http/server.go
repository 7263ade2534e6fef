// Package httpserver provides the HTTP REST API server for the paper
// analysis service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/ingest"
	"github.com/papaaya/ai-navigator/internal/observability"
	"github.com/papaaya/ai-navigator/internal/pdf"
	"github.com/papaaya/ai-navigator/internal/synthesis"
)

// IngestPipeline runs the full paper ingestion flow.
type IngestPipeline interface {
	ProcessURL(ctx context.Context, arxivURL string) (*domain.Ingest, error)
	ProcessUpload(ctx context.Context, content []byte) (*domain.Ingest, error)
}

// Synthesizer produces structured LLM output over an ingested corpus.
type Synthesizer interface {
	Analyze(ctx context.Context, docText, tablesMarkdown string) (*synthesis.Analysis, error)
	GenerateCode(ctx context.Context, corpusText string) (*synthesis.CodeBundle, error)
	Answer(ctx context.Context, corpusText string, questions []string) (*synthesis.QAResult, error)
	Chat(ctx context.Context, message, corpusText string, opts synthesis.ChatOptions) (*domain.Completion, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	pipeline   IngestPipeline
	store      *ingest.Store
	synth      Synthesizer
	validate   *validator.Validate
	logger     zerolog.Logger

	maxUploadBytes int64

	// Extraction hooks for uploaded documents. Overridable in tests so
	// handler tests do not need real PDF bytes.
	extractText   func(content []byte) (string, error)
	extractTables func(content []byte) string
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	pipeline IngestPipeline,
	store *ingest.Store,
	synth Synthesizer,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		pipeline:       pipeline,
		store:          store,
		synth:          synth,
		validate:       validator.New(),
		logger:         logger.With().Str("component", "http-server").Logger(),
		maxUploadBytes: cfg.MaxUploadBytes,
		extractText:    pdf.ExtractText,
		extractTables:  pdf.TablesMarkdown,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 100 << 20
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)

	r.Post("/pdf/process", s.processPDF)
	r.Post("/pdf/upload", s.uploadPDF)
	r.Post("/process-document", s.processDocument)
	r.Post("/code_gen", s.generateCode)
	r.Post("/qa", s.answerQuestions)
	r.Post("/chat", s.chat)

	return r
}

// requestLogger returns the server logger tagged with the request's
// correlation ID.
func (s *Server) requestLogger(r *http.Request) *zerolog.Logger {
	logger := observability.WithRequestContext(s.logger, correlationIDFromContext(r.Context()))
	return &logger
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
