package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"triage/internal/logging"
)

// OllamaClient talks to a local Ollama server through /api/chat.
type OllamaClient struct {
	config *Config
	http   *http.Client
	log    logging.Logger
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(config *Config, log logging.Logger) (*OllamaClient, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &OllamaClient{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		log:    log.With("provider", config.Provider, "model", config.Model),
	}, nil
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatResponse struct {
	Message ChatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Invoke sends a non-streaming chat request with temperature 0 and a fixed seed.
func (c *OllamaClient) Invoke(ctx context.Context, system, user string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: c.config.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: 0, Seed: 42},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Ollama request failed", "error", err.Error())
		return "", transportError(c.config.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", NewAPIError(c.config.Provider, resp.StatusCode, string(errBody))
	}

	var ollamaResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if ollamaResp.Error != "" {
		return "", NewAPIError(c.config.Provider, 0, ollamaResp.Error)
	}

	return strings.TrimSpace(ollamaResp.Message.Content), nil
}
