package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force in-process VectorIndex. Vectors are
// L2-normalized at insertion and ranked by dot product against the
// normalized query, which is cosine similarity. It is the default backend
// and the reference implementation the persistent backends must match.
type MemoryIndex struct {
	// mu guards all fields below.
	mu sync.RWMutex
	// dims is the dimensionality fixed by the first insertion; zero until
	// the first Add after construction or Clear.
	dims int
	// vectors holds the normalized stored vectors in insertion order.
	vectors [][]float32
	// passages is parallel to vectors.
	passages []Passage
}

// NewMemoryIndex constructs an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add inserts passages with their embeddings, normalizing each vector.
// The first insertion fixes the index dimensionality.
func (m *MemoryIndex) Add(_ context.Context, passages []Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return NewError(ClassDimensionMismatch,
			"memory index: passages and vectors length mismatch")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before committing dims, so a rejected Add
	// leaves the index unchanged.
	dims := m.dims
	for _, v := range vectors {
		if dims == 0 {
			if len(v) == 0 {
				return NewError(ClassDimensionMismatch, "memory index: zero-length vector")
			}
			dims = len(v)
		}
		if len(v) != dims {
			return NewError(ClassDimensionMismatch, "memory index: vector dimensionality mismatch")
		}
	}
	m.dims = dims

	for i, v := range vectors {
		m.vectors = append(m.vectors, Normalize(v))
		m.passages = append(m.passages, passages[i])
	}
	return nil
}

// Search ranks all stored passages by cosine similarity to the query
// vector. Ties keep insertion order so retrieval is deterministic.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, topK int) ([]ScoredPassage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.vectors) == 0 {
		return nil, nil
	}
	if len(vector) != m.dims {
		return nil, NewError(ClassDimensionMismatch, "memory index: query vector dimensionality mismatch")
	}
	return rankCosine(m.passages, m.vectors, vector, topK), nil
}

// rankCosine scores every stored vector against the query and returns the
// topK best as ScoredPassages. Stored vectors must already be normalized;
// the query is normalized here. Ties keep insertion order.
func rankCosine(passages []Passage, vectors [][]float32, query []float32, topK int) []ScoredPassage {
	if topK <= 0 || topK > len(vectors) {
		topK = len(vectors)
	}

	q := Normalize(query)

	idxs := make([]int, len(vectors))
	scores := make([]float32, len(vectors))
	for i, v := range vectors {
		idxs[i] = i
		scores[i] = Dot(q, v)
	}

	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})

	results := make([]ScoredPassage, 0, topK)
	for _, i := range idxs[:topK] {
		results = append(results, ScoredPassage{
			Passage:  passages[i],
			Score:    scores[i],
			Distance: 1 - scores[i],
		})
	}
	return results
}

// Count returns the number of stored passages.
func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.passages), nil
}

// Clear drops all stored passages and resets the dimensionality so a
// rebuild may use a different embedding backend.
func (m *MemoryIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dims = 0
	m.vectors = nil
	m.passages = nil
	return nil
}

// Close is a no-op for the in-process index.
func (m *MemoryIndex) Close() error { return nil }

// Normalize returns v scaled to unit L2 norm. The zero vector is returned
// unchanged. The input is not modified.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
