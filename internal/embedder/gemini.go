// Package embedder provides implementations of the rag.Embedder interface
// for converting passages and queries into dense vector embeddings. The
// remote implementation talks to the Gemini embeddings API. The local one
// runs entirely in-process and exists so indexing can finish even when the
// remote quota is exhausted.
package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// Gemini embedding task types. Documents and queries are embedded
// asymmetrically so short questions land near long passages.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GeminiEmbedder implements rag.Embedder against the Gemini embeddings API.
// It is safe for concurrent use.
type GeminiEmbedder struct {
	// client is the shared genai API client.
	client *genai.Client
	// model is the embedding model name (e.g. "text-embedding-004").
	model string
	// dimensions is the output vector length of the model.
	dimensions int
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// APIKey is the Gemini API key.
	APIKey string
	// Model is the embedding model name (default: text-embedding-004).
	Model string
	// Dimensions is the output vector length (default: 768).
	Dimensions int
}

// NewGeminiEmbedder constructs a GeminiEmbedder from the given config.
func NewGeminiEmbedder(ctx context.Context, cfg *GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini embedder: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = defaultGeminiDimensions
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: model, dimensions: dims}, nil
}

// EmbedDocument embeds a single passage with the document task type.
func (e *GeminiEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskRetrievalDocument)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds passages in batches of batchSize. If a batch call
// fails for a reason other than quota exhaustion, its texts are retried
// one by one so a single rejected passage does not sink the whole build.
// Quota failures abort immediately: retrying against an exhausted quota
// only burns more of it.
func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchVectors, err := e.embed(ctx, batch, taskRetrievalDocument)
		if err != nil {
			if rag.IsQuota(err) {
				return nil, err
			}
			batchVectors, err = e.embedOneByOne(ctx, batch)
			if err != nil {
				return nil, err
			}
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

// EmbedQuery embeds a user question with the query task type.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions returns the output vector length.
func (e *GeminiEmbedder) Dimensions() int { return e.dimensions }

// Name identifies this backend in logs and downgrade decisions.
func (e *GeminiEmbedder) Name() string { return "gemini" }

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, e.classify(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, rag.NewError(rag.ClassEmbeddingFatal,
			fmt.Sprintf("gemini embedder: got %d embeddings for %d texts", len(resp.Embeddings), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *GeminiEmbedder) embedOneByOne(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.embed(ctx, []string{t}, taskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		vectors[i] = v[0]
	}
	return vectors, nil
}

// classify wraps an SDK error in the typed taxonomy so callers decide on
// class, not message text.
func (e *GeminiEmbedder) classify(err error) error {
	if rag.IsQuota(err) {
		return rag.WrapError(rag.ClassEmbeddingQuota, "gemini embedder: quota exceeded", err)
	}
	return rag.WrapError(rag.ClassEmbeddingFatal, "gemini embedder: embed failed", err)
}
