package core

import "fmt"

// AbuseError is returned when an email is rejected before it reaches the
// model.
type AbuseError struct {
	Length int
	Limit  int
}

func (e *AbuseError) Error() string {
	return "Email too long, possible abuse."
}

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// PanicError carries a panic recovered from a pipeline run.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
