// Package provider selects and constructs the chat model backend used for
// answer generation. Supported backends: Google Gemini, OpenAI, Azure
// OpenAI, Ollama.
package provider

import "fmt"

// Backend enumerates the supported generation providers.
type Backend string

const (
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
)

// ProviderGemini holds Gemini-specific settings.
type ProviderGemini struct {
	// APIKey is the AI Studio API key (GOOGLE_API_KEY).
	APIKey string
	// Model is the generation model name (e.g. "gemini-2.0-flash").
	Model string
}

// ProviderOpenAI holds OpenAI-specific settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI API key (OPENAI_API_KEY).
	APIKey string
	// Model is the model name (e.g. "gpt-4o-mini").
	Model string
}

// ProviderAzureOpenAI holds Azure OpenAI Service settings.
type ProviderAzureOpenAI struct {
	// APIKey is the Azure OpenAI key (AZURE_OPENAI_API_KEY).
	APIKey string
	// Endpoint is the resource endpoint (AZURE_OPENAI_ENDPOINT).
	Endpoint string
	// Deployment is the deployment name (AZURE_OPENAI_DEPLOYMENT).
	Deployment string
	// APIVersion is the REST API version (AZURE_OPENAI_API_VERSION).
	APIVersion string
}

// ProviderOllama holds Ollama-specific settings.
type ProviderOllama struct {
	// Host is the Ollama base URL (OLLAMA_HOST).
	Host string
	// Model is the model name (OLLAMA_MODEL).
	Model string
}

// SharedTuning holds generation parameters common to all backends.
type SharedTuning struct {
	// MaxTokens caps the number of tokens generated per answer.
	MaxTokens int
	// Temperature controls response randomness. Factual answering over a
	// fixed catalog wants 0.
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which generation provider to use.
	Backend Backend

	Gemini      ProviderGemini
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ollama      ProviderOllama

	Tuning SharedTuning
}

// Validate checks that the selected backend has the settings it needs so
// callers get a clear error at startup rather than on the first request.
// Error messages name the environment variable that fixes the problem.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
		if c.Gemini.Model == "" {
			return fmt.Errorf("provider: GEMINI_MODEL is required for gemini backend")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("provider: OPENAI_MODEL is required for openai backend")
		}
	case BackendAzure:
		if c.AzureOpenAI.APIKey == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_API_KEY is required for azure backend")
		}
		if c.AzureOpenAI.Endpoint == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		if c.AzureOpenAI.Deployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
	case BackendOllama:
		if c.Ollama.Host == "" {
			return fmt.Errorf("provider: OLLAMA_HOST is required for ollama backend")
		}
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q (valid values: gemini, openai, azure, ollama)", c.Backend)
	}
	return nil
}
