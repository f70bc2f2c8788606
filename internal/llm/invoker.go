package llm

import (
	"context"
	"fmt"

	"triage/internal/logging"
)

// Invoker sends one system/user message pair to a generation service and
// returns the raw response text.
//
// Implementations must be deterministic (temperature 0) and must not retry;
// the repair cycle owns retry policy.
type Invoker interface {
	Invoke(ctx context.Context, system, user string) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, system, user string) (string, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// NewBackend creates the transport selected by config.Provider.
func NewBackend(ctx context.Context, config *Config, log logging.Logger) (Invoker, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Provider {
	case ProviderOllama:
		return NewOllamaClient(config, log)
	case ProviderGemini:
		return NewGeminiClient(ctx, config, log)
	default:
		return NewClient(config, log)
	}
}
