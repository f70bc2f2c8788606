package llm

import (
	"fmt"
	"time"
)

// Supported providers.
const (
	ProviderOpenAI = "openai" // any OpenAI-compatible chat completions API (Groq, OpenRouter)
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Config contains configuration for a generation transport.
type Config struct {
	// Provider selects the transport: openai, ollama or gemini
	// Default: openai
	Provider string

	// APIKey authenticates against the provider (not needed for ollama)
	APIKey string

	// BaseURL is the provider API base URL
	// Default: provider specific, see defaultBaseURLs
	BaseURL string

	// Model is the model identifier sent to the provider
	// Example: llama-3.1-8b-instant
	Model string

	// Timeout is the HTTP request timeout
	// Default: 60 seconds
	Timeout time.Duration
}

var defaultBaseURLs = map[string]string{
	ProviderOpenAI: "https://api.groq.com/openai/v1",
	ProviderOllama: "http://localhost:11434",
}

var defaultModels = map[string]string{
	ProviderOpenAI: "llama-3.1-8b-instant",
	ProviderOllama: "llama3.1:8b",
	ProviderGemini: "gemini-2.5-flash",
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}

	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURLs[c.Provider]
	}

	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}

	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if c.APIKey == "" && c.Provider != ProviderOllama {
		return fmt.Errorf("APIKey is required for provider %s", c.Provider)
	}

	if c.BaseURL == "" && c.Provider != ProviderGemini {
		return fmt.Errorf("BaseURL is required")
	}

	if c.Model == "" {
		return fmt.Errorf("Model is required")
	}

	return nil
}
