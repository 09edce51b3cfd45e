package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder is a deterministic in-process rag.Embedder built on hashed
// lexical features. Tokens and character trigrams are hashed into a fixed
// number of buckets with a signed FNV scheme, then L2-normalized. It needs
// no network and no model files, so it always works, and it is the
// downgrade target when the remote backend runs out of quota.
//
// Vectors from this embedder live in a different space than remote ones,
// so an index must never mix the two.
type LocalEmbedder struct {
	// dimensions is the number of hash buckets.
	dimensions int
}

// NewLocalEmbedder constructs a LocalEmbedder. A non-positive dimensions
// falls back to the default.
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = defaultLocalDimensions
	}
	return &LocalEmbedder{dimensions: dimensions}
}

// EmbedDocument embeds a single passage.
func (e *LocalEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	return e.vectorize(text), nil
}

// EmbedDocuments embeds all passages. The batch size is ignored: there is
// no remote call to batch.
func (e *LocalEmbedder) EmbedDocuments(_ context.Context, texts []string, _ int) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = e.vectorize(t)
	}
	return vectors, nil
}

// EmbedQuery embeds a user question. Queries and documents share the same
// feature space here, unlike the asymmetric remote backend.
func (e *LocalEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vectorize(text), nil
}

// Dimensions returns the number of hash buckets.
func (e *LocalEmbedder) Dimensions() int { return e.dimensions }

// Name identifies this backend in logs and downgrade decisions.
func (e *LocalEmbedder) Name() string { return "local" }

// vectorize hashes word tokens and character trigrams into signed buckets
// and normalizes the result. Trigrams let partial fund names ("flexi")
// overlap with full ones even when token boundaries differ.
func (e *LocalEmbedder) vectorize(text string) []float32 {
	vec := make([]float32, e.dimensions)

	tokens := tokenize(text)
	for _, tok := range tokens {
		e.addFeature(vec, "t:"+tok, 1.0)
		for _, tri := range trigrams(tok) {
			e.addFeature(vec, "g:"+tri, 0.5)
		}
	}

	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// addFeature hashes the feature into a bucket with a sign bit, which keeps
// the expected dot product of unrelated texts near zero.
func (e *LocalEmbedder) addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func trigrams(token string) []string {
	if len(token) < 3 {
		return nil
	}
	grams := make([]string, 0, len(token)-2)
	for i := 0; i+3 <= len(token); i++ {
		grams = append(grams, token[i:i+3])
	}
	return grams
}
