package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fundfaq/fundfaq-go/internal/answer"
	"github.com/fundfaq/fundfaq-go/internal/catalog"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on mutating /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil, a private
	// registry is created; /metrics always serves the one in use.
	Registry *prometheus.Registry
}

// queryAnswerer is the slice of the engine the query handler needs.
// *engine.Engine satisfies it; tests inject a fake.
type queryAnswerer interface {
	AnswerQuery(ctx context.Context, query string) (answer.Result, error)
}

// indexBuilder is the slice of the engine the reindex handler needs.
type indexBuilder interface {
	BuildIndex(ctx context.Context, records []catalog.Record) (int, error)
}

// Server exposes the retrieval engine over HTTP.
type Server struct {
	// answerer handles POST /api/query.
	answerer queryAnswerer
	// builder handles POST /api/index.
	builder indexBuilder
	// source is the record catalog behind GET /api/funds and reindexing.
	source catalog.Source
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the user's natural language question.
	Query string `json:"query"`
}

// indexResponse is the JSON response for POST /api/index.
type indexResponse struct {
	// ChunkCount is the number of passages indexed.
	ChunkCount int `json:"chunk_count"`
}

// fundsResponse is the JSON response for GET /api/funds.
type fundsResponse struct {
	// Funds lists the catalog record names.
	Funds []string `json:"funds"`
}

// errorResponse is the JSON body for non-200 API responses.
type errorResponse struct {
	// Error describes what went wrong.
	Error string `json:"error"`
}
