// Package server provides the HTTP API for Enfance.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/enfance/internal/assistant"
	"github.com/hyperjump/enfance/internal/config"
	"github.com/hyperjump/enfance/internal/metrics"
	"github.com/hyperjump/enfance/internal/storage"
)

// maxBodyBytes bounds request bodies; questions may carry pasted tables and history.
const maxBodyBytes = 1 << 20

// Info describes the loaded state reported by /health.
type Info struct {
	Segments int
	Semantic bool
	Lexicon  int
	Datasets []string
	// Files maps a name to a data file whose size is reported.
	Files map[string]string
	// Store is optional; when set its last import is reported.
	Store storage.SegmentStore
}

// Server is the HTTP server for the Enfance API.
type Server struct {
	assistant *assistant.Assistant
	metrics   *metrics.Metrics
	info      Info
	config    *config.ServerConfig
	limiter   *rate.Limiter
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. m may be nil.
func NewServer(
	asst *assistant.Assistant,
	m *metrics.Metrics,
	info Info,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return &Server{
		assistant: asst,
		metrics:   m,
		info:      info,
		config:    cfg,
		limiter:   limiter,
		logger:    logger,
	}
}

// Handler returns the API routes with their middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(s.accessLog)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/api/v1/ask", s.handleAsk)
		r.Post("/api/v1/search", s.handleSearch)
		// Path used by the browser extension.
		r.Post("/rag-assistant", s.handleAsk)
	})
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
