// Package rag defines the contracts of the retrieval-augmented answering
// pipeline: passages, embedding, and vector indexing. Concrete
// implementations (Gemini, in-memory, bbolt, Qdrant) satisfy these
// interfaces so the engine layer never depends on a specific backend.
package rag

import (
	"context"
)

// Passage kinds emitted by the chunker.
const (
	// KindComprehensive marks the single passage carrying every field of a
	// record.
	KindComprehensive = "comprehensive"
	// KindField marks a passage carrying exactly one field of a record.
	KindField = "field"
)

// Passage is one unit of retrievable text derived from a single catalog
// record. A passage never spans more than one record.
type Passage struct {
	// Text is the passage body presented to the embedder and the generator.
	Text string `json:"text"`

	// RecordName is the name of the record this passage was derived from.
	RecordName string `json:"record_name"`

	// SourceURL is the provenance reference of the owning record.
	// Non-empty whenever the owning record is valid.
	SourceURL string `json:"source_url"`

	// Kind is either KindComprehensive or KindField.
	Kind string `json:"kind"`

	// Field names the single canonical field a KindField passage covers.
	// Empty for comprehensive passages.
	Field string `json:"field,omitempty"`
}

// ScoredPassage is a retrieval hit: a stored passage with its similarity
// to the query vector.
type ScoredPassage struct {
	// Passage is the stored passage, embedded so hits expose its fields
	// directly.
	Passage

	// Score is the cosine similarity in [-1, 1]; higher is more relevant.
	Score float32

	// Distance is 1 - Score, reported for readability.
	Distance float32
}

// Embedder converts text into fixed-length dense vectors. Document and
// query embeddings are distinct operations: some backends optimize
// asymmetric retrieval, so a query embedding of a text is not guaranteed
// to equal its document embedding. Implementations must be stateless with
// respect to any particular text: identical input with an unchanged model
// returns bit-identical vectors. Implementations must be safe to call from
// multiple goroutines.
type Embedder interface {
	// EmbedDocument embeds a single text in document (storage) mode.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of texts in document mode, batchSize
	// texts per backend call. The returned slice is parallel to texts.
	EmbedDocuments(ctx context.Context, texts []string, batchSize int) ([][]float32, error)

	// EmbedQuery embeds a single text in query (retrieval) mode.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the output vector length of this backend.
	Dimensions() int

	// Name returns a short backend label used in logs and readiness output.
	Name() string
}

// VectorIndex stores (vector, passage) pairs and supports cosine
// similarity search. All vectors in one index share one dimensionality and
// must come from one embedding backend; callers rebuild rather than append
// when switching backends. Implementations must be safe for concurrent
// reads; Add and Clear require external single-writer discipline.
type VectorIndex interface {
	// Add inserts passages with their pre-computed embeddings. The vectors
	// slice must be parallel to passages; a length or dimensionality
	// mismatch fails with ClassDimensionMismatch.
	Add(ctx context.Context, passages []Passage, vectors [][]float32) error

	// Search returns the topK most similar stored passages for the query
	// vector, ranked by descending cosine similarity with insertion-order
	// tie-breaks. topK larger than Count returns all stored passages.
	// An empty index returns no results and no error.
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredPassage, error)

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// Clear removes all stored passages and vectors.
	Clear(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}
