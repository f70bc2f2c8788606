package schema

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewRunID generates a report run ID in format RUN-{nanoid(10)}.
func NewRunID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RUN-%s", id), nil
}

// NewEventID generates a pipeline event ID in format EVT-{nanoid(10)}.
func NewEventID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EVT-%s", id), nil
}
