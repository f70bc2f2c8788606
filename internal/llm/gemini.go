package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"triage/internal/logging"
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    logging.Logger
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, config *Config, log logging.Logger) (*GeminiClient, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  config.Model,
		log:    log.With("provider", config.Provider, "model", config.Model),
	}, nil
}

// Invoke generates with the system prompt as system instruction and
// temperature 0.
func (c *GeminiClient) Invoke(ctx context.Context, system, user string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(user),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
		},
	)
	if err != nil {
		c.log.Error("Gemini generate failed", "error", err.Error())
		return "", transportError(ProviderGemini, err)
	}

	if len(result.Candidates) == 0 {
		return "", NewAPIError(ProviderGemini, 0, "no candidates in response")
	}

	return strings.TrimSpace(result.Text()), nil
}
