package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultGeminiModel = "text-embedding-004"

	// defaultGeminiDimensions is the output dimension of text-embedding-004.
	defaultGeminiDimensions = 768
	// defaultLocalDimensions is the hash bucket count of the local embedder.
	defaultLocalDimensions = 384
)

// DefaultDimensions returns the default embedding vector size for the given
// backend name. Callers that pre-configure a vector store (e.g. Qdrant
// collection creation) should use this rather than hardcoding a value.
// EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "local":
		return defaultLocalDimensions
	default:
		return defaultGeminiDimensions
	}
}

// NewFromEnv constructs a rag.Embedder from the environment:
//
//  1. EMBEDDING_PROVIDER selects the backend: "gemini" (default) or "local"
//  2. GOOGLE_API_KEY (or EMBEDDING_API_KEY) authenticates the gemini backend
//  3. EMBEDDING_MODEL overrides the default model for the resolved backend
//  4. EMBEDDING_DIMENSIONS overrides the default dimensions (gemini: 768, local: 384)
func NewFromEnv(ctx context.Context) (rag.Embedder, error) {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")

	switch backend {
	case "gemini":
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: gemini requires GOOGLE_API_KEY or EMBEDDING_API_KEY")
		}
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     apiKey,
			Model:      getEnv("EMBEDDING_MODEL"),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", defaultGeminiDimensions),
		})

	case "local":
		return NewLocalEmbedder(getEnvInt("EMBEDDING_DIMENSIONS", defaultLocalDimensions)), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid values: gemini, local)", backend)
	}
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
