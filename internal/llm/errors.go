package llm

import (
	"errors"
	"fmt"
)

// LLMError represents an error from a generation transport or from parsing
// its output.
type LLMError struct {
	// Type categorizes the error
	Type string

	// Message is a human-readable error message
	Message string

	// Code is the HTTP status code (if applicable)
	Code int

	// Content is the model output that failed to parse (parse errors only)
	Content string

	// Err is the underlying error
	Err error
}

// Error types.
const (
	ErrorTypeNetwork = "network"
	ErrorTypeAPI     = "api"
	ErrorTypeTimeout = "timeout"
	ErrorTypeParse   = "parse"
)

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("LLM %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("LLM %s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a network error.
func NewNetworkError(provider string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeNetwork,
		Message: fmt.Sprintf("failed to reach %s: %v", provider, err),
		Err:     err,
	}
}

// NewAPIError creates an API error with status code.
func NewAPIError(provider string, code int, message string) *LLMError {
	return &LLMError{
		Type:    ErrorTypeAPI,
		Code:    code,
		Message: fmt.Sprintf("%s API error: %s", provider, message),
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(provider string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeTimeout,
		Message: fmt.Sprintf("request to %s timed out", provider),
		Err:     err,
	}
}

// NewParseError creates a parse error for model output that holds no usable
// JSON object.
func NewParseError(content, reason string, err error) *LLMError {
	msg := reason
	if err != nil {
		msg = fmt.Sprintf("%s: %v", reason, err)
	}
	return &LLMError{
		Type:    ErrorTypeParse,
		Message: msg,
		Content: content,
		Err:     err,
	}
}

// IsParseError reports whether err is (or wraps) a parse error.
func IsParseError(err error) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Type == ErrorTypeParse
}
