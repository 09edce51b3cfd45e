package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/fundfaq/fundfaq-go/internal/logging"
	"github.com/fundfaq/fundfaq-go/internal/provider"
	"github.com/fundfaq/fundfaq-go/internal/rag"
	"github.com/fundfaq/fundfaq-go/internal/server"
	"github.com/fundfaq/fundfaq-go/internal/tracing"
)

// NewServeCmd constructs the `fundfaq serve` command, which starts the HTTP
// API server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the fundfaq HTTP API server",
		Long: `Start the fundfaq HTTP server on localhost.

The server builds the vector index from the catalog at startup (when it is
empty) and exposes:

  POST /api/query    answer a question
  POST /api/index    rebuild the index (Bearer auth via FUNDFAQ_API_KEY)
  GET  /api/funds    list catalog records
  GET  /api/health   liveness
  GET  /api/ready    readiness with dependency probes
  GET  /metrics      Prometheus metrics

Examples:
  fundfaq serve
  fundfaq serve --port 9090
  INDEX_BACKEND=qdrant fundfaq serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Explicit flags beat config; config beats the built-in default.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("SERVER_PORT", port)
			}

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("embedding_provider", getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")),
				slog.String("generator_provider", getEnvOrDefault("GENERATOR_PROVIDER", "gemini")),
			)

			// Setup Langfuse tracing; opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			a, err := buildApp(ctx, log, true)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.close()

			// Build the index up front so the first query does not pay for
			// it. Failure is not fatal: POST /api/index can retry once the
			// underlying cause (quota, connectivity) clears.
			if err := ensureIndexed(ctx, a, log, false); err != nil {
				log.Warn("startup index build failed, serving anyway", slog.Any("error", err))
			}

			pingers := []server.Pinger{
				server.NewCatalogPinger(a.store),
				server.PingerFunc{Label: "index", Fn: func(ctx context.Context) error {
					_, err := a.index.Count(ctx)
					return err
				}},
				server.PingerFunc{Label: "generator", Fn: func(context.Context) error {
					return provider.ConfigFromEnv().Validate()
				}},
			}
			if qi, isQdrant := a.index.(*rag.QdrantIndex); isQdrant {
				pingers = append(pingers, server.NewQdrantPinger(qi.Client()))
			}

			srv, err := server.New(a.engine, a.store, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   pingers,
				RateLimit: getEnvFloat("RATE_LIMIT", 0),
				RateBurst: getEnvInt("RATE_BURST", 0),
				APIKey:    os.Getenv("FUNDFAQ_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

// getEnvFloat returns the env var parsed as float64, or fallback when unset
// or unparsable.
func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
