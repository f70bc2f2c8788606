package core

import (
	"context"
	"time"

	"triage/internal/logging"
	"triage/pkg/schema"
)

// EventKind names a diagnostic event of the pipeline.
type EventKind string

const (
	EventInjectionDetected EventKind = "injection_detected"
	EventValidationFailed  EventKind = "validation_failed"
	EventRepairAttempted   EventKind = "repair_attempted"
)

// Event is a diagnostic emitted while triaging one (email, variant) pair.
// Events never change an outcome.
type Event struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id,omitempty"`
	Kind       EventKind `json:"kind"`
	EmailID    string    `json:"email_id"`
	Variant    string    `json:"variant"`
	Pattern    string    `json:"pattern,omitempty"`
	Violations []string  `json:"violations,omitempty"`
	Time       time.Time `json:"time"`
}

// Observer receives pipeline events. Implementations must be safe for
// concurrent use and must not block for long.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, e Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, e Event) {
	f(ctx, e)
}

// Observers fans an event out to each observer in order.
type Observers []Observer

// Observe delivers e to every observer.
func (o Observers) Observe(ctx context.Context, e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, e)
		}
	}
}

// LogObserver writes events as warnings.
type LogObserver struct {
	log logging.Logger
}

// NewLogObserver creates an observer logging to log.
func NewLogObserver(log logging.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Observe logs the event.
func (l *LogObserver) Observe(ctx context.Context, e Event) {
	fields := []any{"event_id", e.ID, "email_id", e.EmailID, "variant", e.Variant}
	if e.RunID != "" {
		fields = append(fields, "run_id", e.RunID)
	}

	switch e.Kind {
	case EventInjectionDetected:
		l.log.Warn("Suspicious pattern detected", append(fields, "pattern", e.Pattern)...)
	case EventValidationFailed:
		l.log.Warn("Validation failed", append(fields, "violations", e.Violations)...)
	case EventRepairAttempted:
		l.log.Info("Repair attempted", fields...)
	default:
		l.log.Info("Pipeline event", append(fields, "kind", string(e.Kind))...)
	}
}

// newEvent stamps an event with an id and time.
func newEvent(kind EventKind, emailID, variant string) Event {
	// nanoid only fails when the system random source does
	id, _ := schema.NewEventID()
	return Event{
		ID:      id,
		Kind:    kind,
		EmailID: emailID,
		Variant: variant,
		Time:    time.Now().UTC(),
	}
}
