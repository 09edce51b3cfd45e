// Package config provides YAML-based configuration for fundfaq.
// Configuration is loaded with a layered precedence: defaults, then the
// YAML file, then env vars. Environment variables always win, so
// env-only deployments keep working unchanged.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. FUNDFAQ_CONFIG environment variable
//  3. ~/.fundfaq/config.yaml
//  4. ./fundfaq.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase,
// underscored).
type Config struct {
	// Generator configures the chat model that writes answers.
	Generator GeneratorConfig `yaml:"generator"`

	// Embedding configures the embedding backend for retrieval.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval configures chunking and search behavior.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Index configures the vector index backend.
	Index IndexConfig `yaml:"index"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Catalog configures the fund catalog store.
	Catalog CatalogConfig `yaml:"catalog"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// GeneratorConfig holds chat model settings.
type GeneratorConfig struct {
	// Provider selects the backend: gemini, openai, azure, ollama.
	Provider string `yaml:"provider"`

	// MaxTokens is the maximum number of tokens in the answer.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls response randomness (0.0 to 1.0).
	Temperature float32 `yaml:"temperature"`

	// Gemini holds Google Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini"`

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure"`

	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Gemini model name.
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the OpenAI model name.
	Model string `yaml:"model"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the Ollama model name.
	Model string `yaml:"model"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (gemini, local).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
}

// RetrievalConfig holds chunking and search settings.
type RetrievalConfig struct {
	// TopK is the number of passages retrieved per query.
	TopK int `yaml:"top_k"`
	// ChunkSize is the chunker's size hint in characters.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the chunker's overlap hint in characters.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// IndexConfig holds vector index backend settings.
type IndexConfig struct {
	// Backend selects the index: memory, bolt, qdrant.
	Backend string `yaml:"backend"`
	// Path is the bolt index file path.
	Path string `yaml:"path"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// CatalogConfig holds fund catalog store settings.
type CatalogConfig struct {
	// DBPath is the SQLite database path for the fund catalog.
	DBPath string `yaml:"db_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var
	// FUNDFAQ_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimit is the per-IP sustained request rate (requests/second).
	RateLimit float32 `yaml:"rate_limit"`
	// RateBurst is the per-IP burst capacity.
	RateBurst int `yaml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"GENERATOR_PROVIDER", func(c *Config) string { return c.Generator.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Generator.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Generator.Temperature) }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Generator.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Generator.Gemini.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Generator.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Generator.OpenAI.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Generator.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Generator.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Generator.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Generator.Azure.APIVersion }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Generator.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Generator.Ollama.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"TOP_K_RETRIEVAL", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Retrieval.ChunkSize) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Retrieval.ChunkOverlap) }},
	{"INDEX_BACKEND", func(c *Config) string { return c.Index.Backend }},
	{"INDEX_PATH", func(c *Config) string { return c.Index.Path }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"CATALOG_DB", func(c *Config) string { return c.Catalog.DBPath }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"FUNDFAQ_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"RATE_LIMIT", func(c *Config) string { return float32Str(c.Server.RateLimit) }},
	{"RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("FUNDFAQ_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".fundfaq", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("fundfaq.yaml"); err == nil {
		return "fundfaq.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
