// Package engine orchestrates the retrieval pipeline: chunking, embedding,
// vector search, and answer synthesis behind two entry points, BuildIndex
// and AnswerQuery. The engine is an explicit object constructed once by
// the host and handed to request handlers; there is no ambient state.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/fundfaq/fundfaq-go/internal/answer"
	"github.com/fundfaq/fundfaq-go/internal/catalog"
	"github.com/fundfaq/fundfaq-go/internal/chunker"
	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// defaultTopK is how many passages retrieval returns per query.
const defaultTopK = 3

// defaultBatchSize is how many passages go into one remote embedding call.
const defaultBatchSize = 16

// Engine owns one Chunker, one Embedder, one VectorIndex, and one
// Synthesizer. BuildIndex is a single-writer operation: callers must not
// run it concurrently with AnswerQuery, since a reader observing a
// cleared-but-unrepopulated index would see empty results.
type Engine struct {
	chunker *chunker.Chunker
	index   rag.VectorIndex
	synth   *answer.Synthesizer
	topK    int
	batch   int
	log     *slog.Logger

	// mu guards embedder and downgraded. The downgrade from the remote to
	// the local embedder happens at most once per engine lifetime; the
	// engine never reverts.
	mu         sync.Mutex
	embedder   rag.Embedder
	local      rag.Embedder
	downgraded bool
}

// Config assembles an Engine.
type Config struct {
	// Chunker converts records to passages.
	Chunker *chunker.Chunker
	// Embedder is the primary embedding backend.
	Embedder rag.Embedder
	// Local is the in-process embedder substituted when the primary runs
	// out of quota. Nil disables downgrade.
	Local rag.Embedder
	// Index stores and searches passage vectors.
	Index rag.VectorIndex
	// Synthesizer produces the final answer.
	Synthesizer *answer.Synthesizer
	// TopK is the retrieval depth (default: 3).
	TopK int
	// BatchSize is the embedding batch size (default: 16).
	BatchSize int
	// Logger receives pipeline progress. Nil uses slog.Default.
	Logger *slog.Logger
}

// New constructs an Engine from the given config.
func New(cfg *Config) *Engine {
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		chunker:  cfg.Chunker,
		embedder: cfg.Embedder,
		local:    cfg.Local,
		index:    cfg.Index,
		synth:    cfg.Synthesizer,
		topK:     topK,
		batch:    batch,
		log:      log,
	}
}

// Downgraded reports whether the engine has switched to the local
// embedding backend.
func (e *Engine) Downgraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.downgraded
}

// currentEmbedder returns the active embedding backend.
func (e *Engine) currentEmbedder() rag.Embedder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embedder
}

// downgrade switches to the local embedder. It returns false when no local
// backend is configured or the engine already runs on it.
func (e *Engine) downgrade() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.downgraded || e.local == nil || e.embedder == e.local {
		return false
	}
	e.log.Warn("embedding quota exceeded, downgrading to local backend",
		"from", e.embedder.Name(), "to", e.local.Name())
	e.embedder = e.local
	e.downgraded = true
	return true
}

// BuildIndex rebuilds the vector index from the given records and returns
// the number of passages indexed. A non-empty index is cleared first:
// appending to an existing index would duplicate passages and, after a
// backend downgrade, mix incompatible vector spaces.
func (e *Engine) BuildIndex(ctx context.Context, records []catalog.Record) (int, error) {
	valid := catalog.Valid(records)
	if len(valid) == 0 {
		return 0, rag.NewError(rag.ClassNoData, "engine: no valid records to index")
	}
	e.log.Info("building index", "records", len(valid))

	count, err := e.index.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		e.log.Warn("index already populated, clearing before rebuild", "passages", count)
		if err := e.index.Clear(ctx); err != nil {
			return 0, err
		}
	}

	passages := e.chunker.CreateChunksFromRecords(valid)
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := e.currentEmbedder().EmbedDocuments(ctx, texts, e.batch)
	if err != nil {
		if !rag.IsQuota(err) || !e.downgrade() {
			return 0, err
		}
		// Re-embed everything with the local backend. Vectors from
		// different backends must never share an index.
		vectors, err = e.currentEmbedder().EmbedDocuments(ctx, texts, e.batch)
		if err != nil {
			return 0, err
		}
	}

	if err := e.index.Add(ctx, passages, vectors); err != nil {
		return 0, err
	}

	e.log.Info("index built", "passages", len(passages), "embedder", e.currentEmbedder().Name())
	return len(passages), nil
}

// AnswerQuery answers one natural-language query. The returned Result is
// always well-formed; the error reports failures the caller may want to
// log or map to a status code.
func (e *Engine) AnswerQuery(ctx context.Context, query string) (answer.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return answer.Result{
			Success:    false,
			Answer:     "Please provide a question.",
			SourceURLs: []string{},
			Mode:       answer.ModeGenerative,
		}, rag.NewError(rag.ClassEmptyQuery, "engine: empty query")
	}

	vector, err := e.currentEmbedder().EmbedQuery(ctx, query)
	if err != nil {
		if !rag.IsQuota(err) || !e.downgrade() {
			return failureResult(query, err), err
		}
		vector, err = e.currentEmbedder().EmbedQuery(ctx, query)
		if err != nil {
			return failureResult(query, err), err
		}
	}

	retrieved, err := e.index.Search(ctx, vector, e.topK)
	if err != nil {
		return failureResult(query, err), err
	}

	return e.synth.Synthesize(ctx, query, retrieved)
}

// failureResult wraps an internal error in the guaranteed response shape.
func failureResult(query string, err error) answer.Result {
	return answer.Result{
		Success:    false,
		Answer:     "Error answering query: " + err.Error(),
		SourceURLs: []string{},
		Query:      query,
		Mode:       answer.ModeGenerative,
	}
}
