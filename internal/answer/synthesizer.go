// Package answer turns retrieved passages into a final answer. The primary
// path asks a chat model to answer from the retrieved context; when the
// model is out of quota the synthesizer drops to deterministic field
// extraction so the caller still gets an answer. Citation attribution
// happens here too: only the provenance of the record the answer is
// actually about gets attached.
package answer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// Answer modes reported in Result.Mode.
const (
	// ModeGenerative means the chat model produced the answer.
	ModeGenerative = "generative"
	// ModeFallbackExtraction means the answer was assembled by pattern
	// matching the retrieved text, with no model involved.
	ModeFallbackExtraction = "fallback_extraction"
)

// noRelevantInfoAnswer is returned when retrieval produced nothing.
const noRelevantInfoAnswer = "I couldn't find relevant information to answer your query."

// Result is the outcome of answering one query. It is always well-formed:
// even internal failures come back as a Result with Success=false.
type Result struct {
	// Success reports whether an answer was produced.
	Success bool `json:"success"`
	// Answer is the answer text, or a failure explanation.
	Answer string `json:"answer"`
	// SourceURLs lists the provenance of the record the answer is about.
	// Empty when the answer states the record was not found.
	SourceURLs []string `json:"source_urls"`
	// Query echoes the original question.
	Query string `json:"query"`
	// RetrievedChunks is the number of passages retrieval returned.
	RetrievedChunks int `json:"retrieved_chunks"`
	// Mode tags how the answer was produced.
	Mode string `json:"mode"`
}

// Generator is the slice of the chat model the synthesizer needs. The eino
// ChatModel implementations satisfy it.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config tunes the generative call.
type Config struct {
	// MaxTokens caps the generated answer length (default: 500).
	MaxTokens int
	// Temperature is the sampling temperature. Zero keeps factual answers
	// reproducible and is the default.
	Temperature float32
}

// Synthesizer produces answers from retrieved passages.
type Synthesizer struct {
	gen         Generator
	maxTokens   int
	temperature float32
	log         *slog.Logger
}

// NewSynthesizer constructs a Synthesizer around the given generator.
func NewSynthesizer(gen Generator, cfg *Config, log *slog.Logger) *Synthesizer {
	if cfg == nil {
		cfg = &Config{}
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{
		gen:         gen,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		log:         log,
	}
}

// Synthesize answers the query from the retrieved passages. The returned
// Result is always well-formed; the error is non-nil only for fatal
// generation failures, and even then the Result carries the failure.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, retrieved []rag.ScoredPassage) (Result, error) {
	if len(retrieved) == 0 {
		return Result{
			Success:    false,
			Answer:     noRelevantInfoAnswer,
			SourceURLs: []string{},
			Query:      query,
			Mode:       ModeGenerative,
		}, nil
	}

	// No generator configured: answer by extraction only.
	if s.gen == nil {
		return s.extract(query, retrieved), nil
	}

	msg, err := s.gen.Generate(ctx, buildPrompt(query, retrieved),
		model.WithTemperature(s.temperature),
		model.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		if rag.IsQuota(err) {
			s.log.Warn("generation quota exceeded, using fallback extraction", "error", err)
			return s.extract(query, retrieved), nil
		}
		s.log.Error("generation failed", "error", err)
		return Result{
			Success:         false,
			Answer:          "Error generating answer: " + err.Error(),
			SourceURLs:      []string{},
			Query:           query,
			RetrievedChunks: len(retrieved),
			Mode:            ModeGenerative,
		}, rag.WrapError(rag.ClassGenerationFatal, "answer: generation failed", err)
	}

	text := strings.TrimSpace(msg.Content)
	return Result{
		Success:         true,
		Answer:          text,
		SourceURLs:      resolveAttribution(text, query, retrieved),
		Query:           query,
		RetrievedChunks: len(retrieved),
		Mode:            ModeGenerative,
	}, nil
}
