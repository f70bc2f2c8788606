package core

import (
	"context"
	"fmt"
	"time"

	"triage/internal/llm"
	"triage/internal/logging"
	"triage/pkg/schema"
)

// Orchestrator runs the triage pipeline for one (email, variant) pair.
type Orchestrator struct {
	invoker      llm.Invoker
	sanitizer    *Sanitizer
	observer     Observer
	log          logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithSanitizer replaces the default sanitizer.
func WithSanitizer(s *Sanitizer) Option {
	return func(o *Orchestrator) { o.sanitizer = s }
}

// NewOrchestrator creates an orchestrator calling invoker.
func NewOrchestrator(invoker llm.Invoker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		invoker:      invoker,
		sanitizer:    NewSanitizer(),
		observer:     Observers{},
		log:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Triage runs the pipeline for one email under one variant. It never returns
// an error or panics: every failure becomes an error outcome.
func (o *Orchestrator) Triage(ctx context.Context, email Email, v llm.Variant) (out schema.Outcome) {
	log := o.log.With("email_id", email.ID, "variant", string(v))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Pipeline panicked", "panic", fmt.Sprint(r))
			out = schema.Failure(&PanicError{Value: r})
		}
	}()

	switch v {
	case llm.ZeroShot, llm.FewShot:
		out = o.triagePlain(ctx, log, email, v)
	case llm.HardenedSelfCheck:
		out = o.triageHardened(ctx, log, email)
	default:
		out = schema.Failure(fmt.Errorf("unknown variant %q", v))
	}

	if out.Failed() {
		log.Warn("Triage failed", "error", out.Err.Error())
	}
	return out
}

// triagePlain invokes once and records whatever object comes back.
func (o *Orchestrator) triagePlain(ctx context.Context, log logging.Logger, email Email, v llm.Variant) schema.Outcome {
	prompt := llm.BuildPrompt(email.Body, v)

	raw, err := o.invoke(ctx, log, prompt)
	if err != nil {
		return schema.Failure(err)
	}

	obj, err := llm.ExtractObject(raw)
	if err != nil {
		return schema.Failure(err)
	}

	return schema.Success(obj, schema.ValidateObject(obj), false)
}

// triageHardened sanitizes, drafts, validates and runs at most one repair
// round. The repaired object is returned even if it still has violations.
func (o *Orchestrator) triageHardened(ctx context.Context, log logging.Logger, email Email) schema.Outcome {
	v := llm.HardenedSelfCheck

	patterns, err := o.sanitizer.Check(email.Body)
	if err != nil {
		return schema.Failure(err)
	}
	for _, p := range patterns {
		e := newEvent(EventInjectionDetected, email.ID, string(v))
		e.Pattern = p
		o.emit(ctx, e)
	}

	fail := func(err error) schema.Outcome {
		out := schema.Failure(err)
		out.InjectionPatterns = patterns
		return out
	}

	// Draft
	raw, err := o.invoke(ctx, log, llm.BuildPrompt(email.Body, v))
	if err != nil {
		return fail(err)
	}

	var violations schema.Violations
	obj, err := llm.ExtractObject(raw)
	if err != nil {
		violations = schema.Violations{err.Error()}
	} else {
		violations = schema.ValidateObject(obj)
	}

	if violations.Valid() {
		out := schema.Success(obj, nil, false)
		out.InjectionPatterns = patterns
		return out
	}

	// Repair
	failed := newEvent(EventValidationFailed, email.ID, string(v))
	failed.Violations = violations
	o.emit(ctx, failed)
	o.emit(ctx, newEvent(EventRepairAttempted, email.ID, string(v)))

	raw, err = o.invoke(ctx, log, llm.BuildRepairPrompt(raw, violations))
	if err != nil {
		return fail(err)
	}

	obj, err = llm.ExtractObject(raw)
	if err != nil {
		return fail(err)
	}

	final := schema.ValidateObject(obj)
	if !final.Valid() {
		log.Warn("Repaired output still invalid", "violations", []string(final))
	}

	out := schema.Success(obj, final, true)
	out.InjectionPatterns = patterns
	return out
}

func (o *Orchestrator) invoke(ctx context.Context, log logging.Logger, prompt llm.Prompt) (string, error) {
	start := time.Now()
	raw, err := o.invoker.Invoke(ctx, prompt.System, prompt.User)
	duration := time.Since(start)

	if err != nil {
		log.Debug("Model invocation failed", "error", err.Error(), "duration", duration)
		return "", err
	}

	log.Debug("Model invocation completed", "duration", duration, "response_chars", len(raw))
	return raw, nil
}

func (o *Orchestrator) emit(ctx context.Context, e Event) {
	e.RunID = RunIDFromContext(ctx)
	o.observer.Observe(ctx, e)
}

type runIDKey struct{}

// ContextWithRunID attaches a run id that is stamped on every event.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id attached to ctx, if any.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
