package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"triage/internal/logging"
)

// Client talks to an OpenAI-compatible chat completions API (Groq, OpenRouter).
type Client struct {
	config *Config
	http   *http.Client
	log    logging.Logger
}

// NewClient creates a new chat completions client.
func NewClient(config *Config, log logging.Logger) (*Client, error) {
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		log: log.With("provider", config.Provider, "model", config.Model),
	}, nil
}

// ChatRequest represents a chat completions request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// ChatMessage represents a message in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a chat completions response.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Invoke sends the system and user messages with temperature 0 and returns the
// trimmed content of the first choice.
func (c *Client) Invoke(ctx context.Context, system, user string) (string, error) {
	reqBody := ChatRequest{
		Model: c.config.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.log.Error("Chat completion request failed",
			"error", err.Error(),
			"duration", duration,
		)
		return "", transportError(c.config.Provider, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("Failed to close response body", "error", err)
		}
	}()

	c.log.Debug("Chat completion request completed",
		"status_code", resp.StatusCode,
		"duration", duration,
	)

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		if _, err := errBody.ReadFrom(resp.Body); err != nil {
			c.log.Warn("Failed to read error response body", "error", err)
			return "", NewAPIError(c.config.Provider, resp.StatusCode, fmt.Sprintf("status %d (failed to read error body)", resp.StatusCode))
		}
		return "", NewAPIError(c.config.Provider, resp.StatusCode, errBody.String())
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", NewAPIError(c.config.Provider, 0, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", NewAPIError(c.config.Provider, 0, "no choices in response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// transportError classifies a failed HTTP round trip.
func transportError(provider string, err error) *LLMError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError(provider, err)
	}
	return NewNetworkError(provider, err)
}
