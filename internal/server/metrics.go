// Prometheus metrics owned by the HTTP server, shared with handlers and
// middleware through the Server struct.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by logical endpoint name rather
// than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// One instance is created in New and stored on Server so tests can inject
// a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// queryRequestsTotal counts completed /api/query requests, partitioned
	// by outcome ("ok", "empty_query", "error") and answer mode
	// ("generative", "fallback_extraction").
	queryRequestsTotal *prometheus.CounterVec

	// queryDurationSeconds records the wall-clock duration of each
	// /api/query request, embed plus retrieval plus generation.
	queryDurationSeconds *prometheus.HistogramVec

	// indexedPassages is the passage count of the most recent index build.
	indexedPassages prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns
// the populated serverMetrics. promauto.With(reg) registers into the
// provided registry rather than the global default, keeping unit tests
// hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundfaq",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of /api/query requests completed, partitioned by outcome and answer mode.",
		}, []string{"outcome", "mode"}),

		queryDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fundfaq",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/query requests, embedding through answer synthesis.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),

		indexedPassages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "fundfaq",
			Subsystem: "index",
			Name:      "passages",
			Help:      "Passage count of the most recent index build.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundfaq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fundfaq",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
