package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"
)

// NewFromEnv constructs a ChatModel by reading provider configuration from
// environment variables. GENERATOR_PROVIDER selects the backend; each
// provider uses its own native credential env vars.
//
// Environment variables:
//
//	GENERATOR_PROVIDER          = gemini | openai | azure | ollama (default: gemini)
//
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-2.0-flash)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini)
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//
//	Shared:  MODEL_MAX_TOKENS (default: 500), MODEL_TEMPERATURE (default: 0.0)
func NewFromEnv(ctx context.Context) (model.ToolCallingChatModel, error) {
	return New(ctx, ConfigFromEnv())
}

// ConfigFromEnv resolves the provider configuration from environment
// variables without constructing a client. Useful for validation-only
// paths such as readiness probes.
func ConfigFromEnv() *Config {
	return &Config{
		Backend: Backend(getEnvOrDefault("GENERATOR_PROVIDER", string(BackendGemini))),
		Gemini: ProviderGemini{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		OpenAI: ProviderOpenAI{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Ollama: ProviderOllama{
			Host:  getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnvOrDefault("OLLAMA_MODEL", "llama3"),
		},
		Tuning: SharedTuning{
			MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 500),
			Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.0),
		},
	}
}

// New constructs a ChatModel from an explicit Config, delegating to the
// appropriate backend constructor. It validates the config first.
func New(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendGemini:
		return newGemini(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendOllama:
		return newOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q (valid values: gemini, openai, azure, ollama)", cfg.Backend)
	}
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

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
