package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/fundfaq/fundfaq-go/internal/answer"
	"github.com/fundfaq/fundfaq-go/internal/catalog"
	"github.com/fundfaq/fundfaq-go/internal/chunker"
	"github.com/fundfaq/fundfaq-go/internal/embedder"
	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// quotaEmbedder simulates a remote backend that is out of quota.
type quotaEmbedder struct{}

func (quotaEmbedder) EmbedDocument(context.Context, string) ([]float32, error) {
	return nil, rag.NewError(rag.ClassEmbeddingQuota, "quota exceeded")
}

func (quotaEmbedder) EmbedDocuments(context.Context, []string, int) ([][]float32, error) {
	return nil, rag.NewError(rag.ClassEmbeddingQuota, "quota exceeded")
}

func (quotaEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, rag.NewError(rag.ClassEmbeddingQuota, "quota exceeded")
}

func (quotaEmbedder) Dimensions() int { return 768 }
func (quotaEmbedder) Name() string    { return "remote" }

// fatalEmbedder simulates a remote backend with a non-recoverable failure.
type fatalEmbedder struct{ quotaEmbedder }

func (fatalEmbedder) EmbedDocuments(context.Context, []string, int) ([][]float32, error) {
	return nil, rag.NewError(rag.ClassEmbeddingFatal, "model unavailable")
}

// echoGenerator answers with a fixed reply.
type echoGenerator struct {
	reply string
	err   error
}

func (g echoGenerator) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if g.err != nil {
		return nil, g.err
	}
	return schema.AssistantMessage(g.reply, nil), nil
}

func liquidRecord() catalog.Record {
	return catalog.Record{
		Name:             "Parag Parikh Liquid Fund",
		ExpenseRatio:     "0.16%",
		ExitLoad:         "Nil",
		MinimumSIP:       "Rs. 1,000",
		Riskometer:       "Low to Moderate",
		Benchmark:        "CRISIL Liquid Debt Index",
		SourceURL:        "https://example.com/liquid",
		ValidationStatus: catalog.ValidationValid,
	}
}

func newTestEngine(t *testing.T, gen answer.Generator) *Engine {
	t.Helper()

	local := embedder.NewLocalEmbedder(128)
	return New(&Config{
		Chunker:     chunker.New(500, 50),
		Embedder:    local,
		Local:       local,
		Index:       rag.NewMemoryIndex(),
		Synthesizer: answer.NewSynthesizer(gen, nil, nil),
	})
}

func Test_Engine_BuildIndexCountsPassages(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, echoGenerator{reply: "ok"})
	count, err := e.BuildIndex(context.Background(), []catalog.Record{liquidRecord()})
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	if count != 7 {
		t.Fatalf("chunk count = %d, want 7", count)
	}
}

func Test_Engine_BuildIndexNoValidRecordsFails(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, echoGenerator{reply: "ok"})
	invalid := liquidRecord()
	invalid.ValidationStatus = "failed"

	_, err := e.BuildIndex(context.Background(), []catalog.Record{invalid})
	if rag.ClassOf(err) != rag.ClassNoData {
		t.Fatalf("expected no-data error, got %v", err)
	}
}

func Test_Engine_BuildIndexIsIdempotent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, echoGenerator{reply: "ok"})
	ctx := context.Background()
	records := []catalog.Record{liquidRecord()}

	first, err := e.BuildIndex(ctx, records)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := e.BuildIndex(ctx, records)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if first != second {
		t.Errorf("chunk counts differ across rebuilds: %d vs %d", first, second)
	}
}

func Test_Engine_BuildIndexDowngradesOnQuota(t *testing.T) {
	t.Parallel()

	local := embedder.NewLocalEmbedder(128)
	e := New(&Config{
		Chunker:     chunker.New(500, 50),
		Embedder:    quotaEmbedder{},
		Local:       local,
		Index:       rag.NewMemoryIndex(),
		Synthesizer: answer.NewSynthesizer(echoGenerator{reply: "ok"}, nil, nil),
	})

	count, err := e.BuildIndex(context.Background(), []catalog.Record{liquidRecord()})
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	if count != 7 {
		t.Fatalf("chunk count = %d, want 7", count)
	}
	if !e.Downgraded() {
		t.Error("expected engine to report downgrade")
	}
}

func Test_Engine_BuildIndexFatalEmbeddingPropagates(t *testing.T) {
	t.Parallel()

	e := New(&Config{
		Chunker:     chunker.New(500, 50),
		Embedder:    fatalEmbedder{},
		Local:       embedder.NewLocalEmbedder(128),
		Index:       rag.NewMemoryIndex(),
		Synthesizer: answer.NewSynthesizer(echoGenerator{reply: "ok"}, nil, nil),
	})

	_, err := e.BuildIndex(context.Background(), []catalog.Record{liquidRecord()})
	if rag.ClassOf(err) != rag.ClassEmbeddingFatal {
		t.Fatalf("expected fatal embedding error, got %v", err)
	}
	if e.Downgraded() {
		t.Error("fatal errors must not trigger downgrade")
	}
}

func Test_Engine_AnswerQueryEmptyFails(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, echoGenerator{reply: "ok"})
	result, err := e.AnswerQuery(context.Background(), "   ")
	if rag.ClassOf(err) != rag.ClassEmptyQuery {
		t.Fatalf("expected empty query error, got %v", err)
	}
	if result.Success {
		t.Error("expected failure result")
	}
}

func Test_Engine_AnswerQueryEndToEnd(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, echoGenerator{reply: "The exit load for Parag Parikh Liquid Fund is Nil."})
	ctx := context.Background()

	if _, err := e.BuildIndex(ctx, []catalog.Record{liquidRecord()}); err != nil {
		t.Fatalf("build index: %v", err)
	}

	result, err := e.AnswerQuery(ctx, "what is the exit load for parag parikh liquid fund?")
	if err != nil {
		t.Fatalf("answer query: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.Contains(result.Answer, "Parag Parikh Liquid Fund") || !strings.Contains(result.Answer, "Nil") {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.SourceURLs) != 1 || result.SourceURLs[0] != "https://example.com/liquid" {
		t.Errorf("source urls = %v", result.SourceURLs)
	}
	if result.RetrievedChunks != 3 {
		t.Errorf("retrieved chunks = %d, want 3", result.RetrievedChunks)
	}
}

func Test_Engine_AnswerQueryGenerationQuotaUsesFallback(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, echoGenerator{err: errors.New("429 rate limit exceeded")})
	ctx := context.Background()

	if _, err := e.BuildIndex(ctx, []catalog.Record{liquidRecord()}); err != nil {
		t.Fatalf("build index: %v", err)
	}

	result, err := e.AnswerQuery(ctx, "what is the exit load for parag parikh liquid fund?")
	if err != nil {
		t.Fatalf("answer query: %v", err)
	}
	if result.Mode != answer.ModeFallbackExtraction {
		t.Fatalf("mode = %s, want %s", result.Mode, answer.ModeFallbackExtraction)
	}
	if !strings.Contains(result.Answer, "Nil") {
		t.Errorf("fallback answer missing extracted value: %q", result.Answer)
	}
}

func Test_Engine_AnswerQueryEmptyIndexSaysNoInformation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, echoGenerator{reply: "unused"})
	result, err := e.AnswerQuery(context.Background(), "what is the exit load?")
	if err != nil {
		t.Fatalf("answer query: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure on empty index, got %+v", result)
	}
	if !strings.Contains(result.Answer, "couldn't find relevant information") {
		t.Errorf("answer = %q", result.Answer)
	}
}
