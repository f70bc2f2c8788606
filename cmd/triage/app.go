package main

import (
	"context"
	"fmt"
	"io"

	"triage/internal/core"
	"triage/internal/kafka"
	"triage/internal/llm"
	"triage/internal/logging"
	"triage/internal/repository"
)

// reportOwner identifies this process in report lock files.
const reportOwner = "triage"

// app is the wired pipeline shared by the batch run and the server.
type app struct {
	cfg        *core.Config
	log        logging.Logger
	aggregator *core.Aggregator

	closers []func()
}

func newApp(ctx context.Context, cfg *core.Config, logOut io.Writer) (*app, error) {
	a := &app{
		cfg: cfg,
		log: logging.NewLoggerTo(logOut, cfg.LogLevel, cfg.LogFormat),
	}

	invoker, err := a.buildInvoker(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	observers := core.Observers{core.NewLogObserver(a.log)}
	if len(cfg.Events.KafkaBrokers) > 0 {
		pub := kafka.NewEventPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, a.log)
		a.onClose(func() {
			if err := pub.Close(); err != nil {
				a.log.Warn("Failed to close event publisher", "error", err.Error())
			}
		})
		observers = append(observers, pub)
	}

	stores, err := a.buildStores(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	orch := core.NewOrchestrator(invoker,
		core.WithObserver(observers),
		core.WithLogger(a.log),
	)
	a.aggregator = core.NewAggregator(orch,
		core.WithStores(stores...),
		core.WithConcurrency(cfg.Triage.Concurrency),
		core.WithAggregatorLogger(a.log),
	)

	return a, nil
}

// buildInvoker layers the backend: transport, then Genkit, then cache, then
// recording. Replay mode skips the network entirely.
func (a *app) buildInvoker(ctx context.Context) (llm.Invoker, error) {
	cfg := a.cfg

	if cfg.LLM.ReplayDir != "" {
		fixtures, err := llm.NewFixtureInvoker(cfg.LLM.ReplayDir)
		if err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		a.log.Info("Replaying recorded responses", "dir", cfg.LLM.ReplayDir, "fixtures", fixtures.Len())
		return fixtures, nil
	}

	backendCfg := cfg.LLMBackendConfig()
	backend, err := llm.NewBackend(ctx, backendCfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("create llm backend: %w", err)
	}
	invoker := backend

	if cfg.LLM.Genkit {
		invoker = llm.NewGenkitInvoker(ctx, backendCfg.Provider, invoker)
	}

	if cfg.Cache.RedisAddr != "" {
		cache, err := llm.NewRedisCache(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect response cache: %w", err)
		}
		a.onClose(func() { _ = cache.Close() })
		namespace := backendCfg.Provider + "/" + backendCfg.Model
		invoker = llm.NewCachingInvoker(invoker, cache, namespace, cfg.Cache.TTL, a.log)
	}

	if cfg.LLM.RecordDir != "" {
		invoker = llm.NewRecordingInvoker(invoker, cfg.LLM.RecordDir, backendCfg.Model)
	}

	a.log.Info("LLM backend ready",
		"provider", backendCfg.Provider,
		"model", backendCfg.Model,
		"genkit", cfg.LLM.Genkit,
		"cache", cfg.Cache.RedisAddr != "",
	)
	return invoker, nil
}

func (a *app) buildStores(ctx context.Context) ([]core.ReportStore, error) {
	var stores []core.ReportStore

	if a.cfg.Report.Path != "" {
		stores = append(stores, repository.NewFileStore(a.cfg.Report.Path, reportOwner, a.log))
	}

	if a.cfg.Report.PostgresDSN != "" {
		pg, err := repository.NewPostgresStore(ctx, a.cfg.Report.PostgresDSN, a.log)
		if err != nil {
			return nil, fmt.Errorf("connect report database: %w", err)
		}
		a.onClose(pg.Close)
		stores = append(stores, pg)
	}

	return stores, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.log.Sync()
}
