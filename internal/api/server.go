// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/newthinker/folio/internal/api/handler/api"
	"github.com/newthinker/folio/internal/api/job"
	"github.com/newthinker/folio/internal/metrics"
)

// Server represents the HTTP server for folio
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string
}

// Dependencies are the components the routes are served from. Archive and
// Metrics may be nil, which disables their routes.
type Dependencies struct {
	Analyzer   handler.Analyzer
	History    handler.HistorySource
	Volatility handler.VolatilitySource
	Sentiment  handler.SentimentAnalyzer
	Archive    handler.ReportArchive
	Jobs       *job.Store
	Metrics    *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Analyzer == nil || deps.History == nil || deps.Volatility == nil || deps.Sentiment == nil {
		return nil, fmt.Errorf("analyzer, history, volatility and sentiment are required")
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		deps:   deps,
	}
	s.setupRoutes(cfg.MetricsPath)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(metricsPath string) {
	d := s.deps

	portfolio := handler.NewPortfolioHandler(d.Analyzer, d.Jobs, s.logger)
	s.mux.HandleFunc("POST /api/v1/portfolio/analyze", portfolio.Analyze)
	s.mux.HandleFunc("POST /api/v1/portfolio/risk", portfolio.Risk)
	s.mux.HandleFunc("GET /api/v1/jobs/{id}", portfolio.GetJob)

	mkt := handler.NewMarketHandler(d.Analyzer, d.History, d.Volatility)
	s.mux.HandleFunc("GET /api/v1/quotes/{symbol}", mkt.Quote)
	s.mux.HandleFunc("GET /api/v1/history/{symbol}", mkt.History)
	s.mux.HandleFunc("GET /api/v1/volatility/{symbol}", mkt.Volatility)

	sent := handler.NewSentimentHandler(d.Sentiment)
	s.mux.HandleFunc("POST /api/v1/sentiment", sent.Portfolio)
	s.mux.HandleFunc("POST /api/v1/sentiment/score", sent.Score)
	s.mux.HandleFunc("GET /api/v1/sentiment/{symbol}/history", sent.History)

	if d.Archive != nil {
		reports := handler.NewReportsHandler(d.Archive)
		s.mux.HandleFunc("GET /api/v1/reports", reports.List)
		s.mux.HandleFunc("POST /api/v1/reports/compare", reports.Compare)
	}

	if d.Metrics != nil {
		s.mux.Handle("GET "+metricsPath, promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","active_jobs":%d}`, s.deps.Jobs.Active())
}
