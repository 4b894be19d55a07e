// Package server provides the HTTP API for the FAQ service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/config"
	"github.com/Dunglqd/vexera-ai-system-test/internal/metrics"
	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/internal/retrieval"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// FAQService is the part of the retrieval engine the API needs.
type FAQService interface {
	Ask(ctx context.Context, req models.AskRequest) models.RetrievalOutcome
	ListQuestions() []string
	FindBySubstring(keyword string) []models.CorpusEntry
	KeywordSearch(ctx context.Context, q models.KeywordQuery) (retrieval.KeywordResult, error)
	Rebuild(ctx context.Context, force bool) error
	Status() retrieval.Status
}

// Server is the HTTP server for the FAQ API.
type Server struct {
	engine      FAQService
	config      *config.ServerConfig
	logger      *zap.Logger
	metrics     *metrics.Metrics
	metricsPath string
	diskPaths   []string
	server      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics instruments every route and serves m at path.
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// WithDiskPaths reports the on-disk size of paths in the status endpoint.
func WithDiskPaths(paths ...string) Option {
	return func(s *Server) { s.diskPaths = paths }
}

// NewServer creates a server with the given dependencies.
func NewServer(engine FAQService, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		engine:      engine,
		config:      cfg,
		logger:      utils.OrNop(logger),
		metricsPath: "/metrics",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/faq", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Get("/list", s.handleList)
		r.Get("/search", s.handleSearch)
		r.Get("/keyword", s.handleKeyword)
		r.Post("/rebuild", s.handleRebuild)
	})
	r.Get("/api/v1/status", s.handleStatus)

	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
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

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
