package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fundfaq/fundfaq-go/internal/answer"
	"github.com/fundfaq/fundfaq-go/internal/catalog"
	"github.com/fundfaq/fundfaq-go/internal/chunker"
	"github.com/fundfaq/fundfaq-go/internal/embedder"
	"github.com/fundfaq/fundfaq-go/internal/engine"
	"github.com/fundfaq/fundfaq-go/internal/provider"
	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// app bundles the wired pipeline for one command invocation.
type app struct {
	// engine is the assembled retrieval engine.
	engine *engine.Engine
	// store is the fund catalog behind the engine.
	store *catalog.SQLiteStore
	// index is the vector index the engine searches. Exposed so commands
	// can decide whether a rebuild is needed.
	index rag.VectorIndex
}

// close releases the catalog and index handles.
func (a *app) close() {
	_ = a.index.Close()
	_ = a.store.Close()
}

// openCatalog opens the SQLite fund catalog. CATALOG_DB overrides the
// default path (~/.fundfaq/catalog.db).
func openCatalog() (*catalog.SQLiteStore, error) {
	path := os.Getenv("CATALOG_DB")
	if path == "" {
		var err error
		path, err = catalog.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve catalog path: %w", err)
		}
	}
	store, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return store, nil
}

// buildVectorIndex constructs the vector index selected by INDEX_BACKEND:
// "memory" (default), "bolt", or "qdrant".
func buildVectorIndex(ctx context.Context) (rag.VectorIndex, error) {
	backend := getEnvOrDefault("INDEX_BACKEND", "memory")

	switch backend {
	case "memory":
		return rag.NewMemoryIndex(), nil

	case "bolt":
		path := os.Getenv("INDEX_PATH")
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve index path: %w", err)
			}
			path = filepath.Join(home, ".fundfaq", "index.db")
		}
		idx, err := rag.OpenBoltIndex(path)
		if err != nil {
			return nil, fmt.Errorf("open bolt index %s: %w", path, err)
		}
		return idx, nil

	case "qdrant":
		embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")
		idx, err := rag.NewQdrantIndex(ctx, &rag.QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "fund-facts"),
			VectorSize: uint64(embedder.DefaultDimensions(embBackend)), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("unknown INDEX_BACKEND %q (valid values: memory, bolt, qdrant)", backend)
	}
}

// buildApp wires the full pipeline: catalog, chunker, embedder, index,
// generator, synthesizer, engine. When withGenerator is false the chat
// model is skipped and answers come from fallback extraction only; index
// rebuilds never need a generator.
func buildApp(ctx context.Context, log *slog.Logger, withGenerator bool) (*app, error) {
	store, err := openCatalog()
	if err != nil {
		return nil, err
	}

	idx, err := buildVectorIndex(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		_ = idx.Close()
		_ = store.Close()
		return nil, err
	}
	log.Info("embedder initialised", slog.String("backend", emb.Name()))

	var gen answer.Generator
	if withGenerator {
		gen, err = provider.NewFromEnv(ctx)
		if err != nil {
			_ = idx.Close()
			_ = store.Close()
			return nil, err
		}
		log.Info("generator initialised", slog.String("backend", getEnvOrDefault("GENERATOR_PROVIDER", "gemini")))
	}

	synth := answer.NewSynthesizer(gen, &answer.Config{
		MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 500),
		Temperature: 0,
	}, log)

	eng := engine.New(&engine.Config{
		Chunker:     chunker.New(getEnvInt("CHUNK_SIZE", 500), getEnvInt("CHUNK_OVERLAP", 50)),
		Embedder:    emb,
		Local:       embedder.NewLocalEmbedder(0),
		Index:       idx,
		Synthesizer: synth,
		TopK:        getEnvInt("TOP_K_RETRIEVAL", 3),
		Logger:      log,
	})

	return &app{engine: eng, store: store, index: idx}, nil
}

// ensureIndexed rebuilds the vector index from the catalog when it is
// empty, or when force is true.
func ensureIndexed(ctx context.Context, a *app, log *slog.Logger, force bool) error {
	count, err := a.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("count index: %w", err)
	}
	if count > 0 && !force {
		log.Debug("index already populated", slog.Int("passages", count))
		return nil
	}

	records, err := a.store.All(ctx)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	indexed, err := a.engine.BuildIndex(ctx, records)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	log.Info("index built", slog.Int("passages", indexed))
	return nil
}

// getEnvOrDefault returns the env var value, or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or fallback when unset or
// unparsable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
