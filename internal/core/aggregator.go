package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"triage/internal/llm"
	"triage/internal/logging"
	"triage/pkg/schema"
)

// ReportStore persists a finished report.
type ReportStore interface {
	Save(ctx context.Context, runID string, report *schema.Report) error
}

// Aggregator runs every configured email through every variant and collects
// the outcomes into a report.
type Aggregator struct {
	orchestrator *Orchestrator
	stores       []ReportStore
	variants     []llm.Variant
	concurrency  int
	log          logging.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithStores sets the report stores written after a run.
func WithStores(stores ...ReportStore) AggregatorOption {
	return func(a *Aggregator) { a.stores = append(a.stores, stores...) }
}

// WithConcurrency bounds how many pairs run at once. Values below 1 mean 1.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n < 1 {
			n = 1
		}
		a.concurrency = n
	}
}

// WithVariants restricts the variants run per email.
func WithVariants(variants ...llm.Variant) AggregatorOption {
	return func(a *Aggregator) { a.variants = variants }
}

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(log logging.Logger) AggregatorOption {
	return func(a *Aggregator) { a.log = log }
}

// NewAggregator creates an aggregator using orchestrator for each pair.
func NewAggregator(orchestrator *Orchestrator, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		orchestrator: orchestrator,
		variants:     llm.Variants(),
		concurrency:  1,
		log:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunResult is a finished batch run.
type RunResult struct {
	RunID    string
	Report   *schema.Report
	Duration time.Duration
}

// Run triages every email and persists the report to every store. The report
// is returned even when a store fails; store errors are joined.
func (a *Aggregator) Run(ctx context.Context, emails []Email) (*RunResult, error) {
	runID, err := schema.NewRunID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	log := a.log.With("run_id", runID)
	log.Info("Triage run started", "emails", len(emails), "variants", len(a.variants), "concurrency", a.concurrency)

	start := time.Now()
	report := a.Collect(ContextWithRunID(ctx, runID), emails)
	result := &RunResult{RunID: runID, Report: report, Duration: time.Since(start)}

	log.Info("Triage run finished",
		"emails", report.Len(),
		"failures", report.Failures(),
		"duration", result.Duration,
	)

	var errs []error
	for _, store := range a.stores {
		if err := store.Save(ctx, runID, report); err != nil {
			log.Error("Failed to save report", "error", err.Error())
			errs = append(errs, err)
		}
	}

	return result, errors.Join(errs...)
}

type pair struct {
	email   Email
	variant llm.Variant
}

// Collect triages every email under every variant and returns the report
// without persisting it. Report order is email order then variant order,
// whatever order the pairs complete in. Variants default to the configured
// set.
func (a *Aggregator) Collect(ctx context.Context, emails []Email, variants ...llm.Variant) *schema.Report {
	if len(variants) == 0 {
		variants = a.variants
	}

	pairs := make([]pair, 0, len(emails)*len(variants))
	for _, e := range emails {
		for _, v := range variants {
			pairs = append(pairs, pair{email: e, variant: v})
		}
	}

	outcomes := make([]schema.Outcome, len(pairs))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, p := range pairs {
		g.Go(func() error {
			outcomes[i] = a.orchestrator.Triage(ctx, p.email, p.variant)
			return nil
		})
	}
	// Pairs never return errors; failures live in their outcomes
	_ = g.Wait()

	report := schema.NewReport()
	for i, p := range pairs {
		report.Set(p.email.ID, string(p.variant), outcomes[i])
	}

	for _, e := range emails {
		a.logSummary(report, e.ID)
	}

	return report
}

// logSummary logs the hardened outcome of an email.
func (a *Aggregator) logSummary(report *schema.Report, emailID string) {
	out, ok := report.Get(emailID, string(llm.HardenedSelfCheck))
	if !ok {
		return
	}

	data, err := json.Marshal(out)
	if err != nil {
		a.log.Warn("Failed to encode outcome", "email_id", emailID, "error", err.Error())
		return
	}

	a.log.Info("Email triaged",
		"email_id", emailID,
		"variant", string(llm.HardenedSelfCheck),
		"repaired", out.Repaired,
		"outcome", string(data),
	)
}
