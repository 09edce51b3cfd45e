package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
generator:
  provider: gemini
  max_tokens: 500
  temperature: 0.2
  gemini:
    model: gemini-2.0-flash
embedding:
  provider: gemini
  model: text-embedding-004
  dimensions: 768
retrieval:
  top_k: 3
  chunk_size: 500
  chunk_overlap: 50
index:
  backend: qdrant
qdrant:
  host: qdrant.internal
  port: 6334
  collection: fund-facts
catalog:
  db_path: /var/lib/fundfaq/catalog.db
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"GENERATOR_PROVIDER", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE",
		"GEMINI_MODEL",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"TOP_K_RETRIEVAL", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"INDEX_BACKEND",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"CATALOG_DB",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"GENERATOR_PROVIDER":   "gemini",
		"MODEL_MAX_TOKENS":     "500",
		"MODEL_TEMPERATURE":    "0.2",
		"GEMINI_MODEL":         "gemini-2.0-flash",
		"EMBEDDING_PROVIDER":   "gemini",
		"EMBEDDING_MODEL":      "text-embedding-004",
		"EMBEDDING_DIMENSIONS": "768",
		"TOP_K_RETRIEVAL":      "3",
		"CHUNK_SIZE":           "500",
		"CHUNK_OVERLAP":        "50",
		"INDEX_BACKEND":        "qdrant",
		"QDRANT_HOST":          "qdrant.internal",
		"QDRANT_PORT":          "6334",
		"QDRANT_COLLECTION":    "fund-facts",
		"CATALOG_DB":           "/var/lib/fundfaq/catalog.db",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
generator:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading; it should NOT be overwritten.
	t.Setenv("GENERATOR_PROVIDER", "gemini")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("GENERATOR_PROVIDER"); got != "gemini" {
		t.Errorf("GENERATOR_PROVIDER: expected env override %q, got %q", "gemini", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
