// Package server implements the HTTP server that exposes the fundfaq
// retrieval engine as a small JSON API: querying, administrative
// reindexing, catalog listing, health and readiness probes, and
// Prometheus metrics. The server is started by the `fundfaq serve` CLI
// command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fundfaq/fundfaq-go/internal/catalog"
	"github.com/fundfaq/fundfaq-go/internal/logging"
	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// Engine is what the server needs from the retrieval engine: answering on
// the hot path and rebuilding on the admin path.
type Engine interface {
	queryAnswerer
	indexBuilder
}

// New constructs a Server around the engine and record source.
func New(eng Engine, source catalog.Source, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("server: engine must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout covers the blocking embed+generate round trip.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		answerer: eng,
		builder:  eng,
		source:   source,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		log.Warn("API authentication disabled: FUNDFAQ_API_KEY is not set")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", rl.middleware(s.instrument("query", http.HandlerFunc(s.handleQuery))))
	mux.Handle("POST /api/index", authMiddleware(cfg.APIKey, s.instrument("index", http.HandlerFunc(s.handleIndex))))
	mux.Handle("GET /api/funds", s.instrument("funds", http.HandlerFunc(s.handleFunds)))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler exposes the fully assembled HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("fundfaq server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleQuery handles POST /api/query. The engine guarantees a well-formed
// result even on internal failure, so the response body is always a full
// answer.Result; only the status code and metrics vary with the outcome.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := s.answerer.AnswerQuery(r.Context(), req.Query)
	elapsed := time.Since(start)

	status := http.StatusOK
	outcome := "ok"
	switch {
	case rag.ClassOf(err) == rag.ClassEmptyQuery:
		status = http.StatusBadRequest
		outcome = "empty_query"
	case err != nil:
		status = http.StatusInternalServerError
		outcome = "error"
		logging.FromContext(r.Context()).Error("query failed", "error", err)
	}

	s.metrics.queryRequestsTotal.WithLabelValues(outcome, result.Mode).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	writeJSON(w, status, result)
}

// handleIndex handles POST /api/index: load the catalog snapshot and
// rebuild the vector index. Administrative, so it sits behind auth and is
// expected to be slow.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusServiceUnavailable, "no record source configured")
		return
	}

	records, err := s.source.All(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("catalog read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read catalog")
		return
	}

	count, err := s.builder.BuildIndex(r.Context(), records)
	if err != nil {
		logging.FromContext(r.Context()).Error("index build failed", "error", err)
		status := http.StatusInternalServerError
		if rag.ClassOf(err) == rag.ClassNoData {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	s.metrics.indexedPassages.Set(float64(count))
	writeJSON(w, http.StatusOK, indexResponse{ChunkCount: count})
}

// handleFunds handles GET /api/funds, listing the catalog record names.
func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusServiceUnavailable, "no record source configured")
		return
	}

	names, err := s.source.Names(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("catalog read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read catalog")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, fundsResponse{Funds: names})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
