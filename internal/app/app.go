package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"LinkClassifier/internal/cache"
	"LinkClassifier/internal/config"
	"LinkClassifier/internal/engine"
	"LinkClassifier/internal/executor"
	"LinkClassifier/internal/infrastructure/linkace"
	"LinkClassifier/internal/infrastructure/ollama"
	"LinkClassifier/internal/logging"
	"LinkClassifier/internal/output"
	"LinkClassifier/internal/ratelimit"
	"LinkClassifier/internal/server"
	"LinkClassifier/internal/status"
)

// Application wires configuration into the classification service and its
// batch executor.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	bookmarks  *linkace.Client
	inference  *ollama.Client
	categories *cache.Cache
	classifier *engine.Engine
	aggregator *status.Aggregator
}

// New builds every component from configuration. Nothing touches the
// network until Serve or RunBatch is called.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	bookmarks := linkace.New(cfg.LinkAce.APIURL, cfg.LinkAce.APIToken,
		cfg.Classify.RequestTimeout, baseLogger.With("component", "linkace"))
	inference := ollama.New(cfg.Ollama.URL, cfg.Ollama.Model,
		cfg.Classify.RequestTimeout, baseLogger.With("component", "ollama"))

	categories := cache.New(cfg.Classify.ListIDs, bookmarks.ListLinks,
		cfg.Classify.CacheTTL, nil, baseLogger.With("component", "cache"))

	classifier := engine.New(engine.Deps{
		Categories: categories,
		Inference:  inference,
		Threshold:  cfg.Classify.Threshold,
		Logger:     baseLogger.With("component", "engine"),
	})

	aggregator := status.New(bookmarks, inference, categories, nil,
		baseLogger.With("component", "status"))

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		bookmarks:  bookmarks,
		inference:  inference,
		categories: categories,
		classifier: classifier,
		aggregator: aggregator,
	}
}

// Serve warms the category cache and runs the HTTP surface until ctx is
// cancelled. A failed warm-up is logged, not fatal: the cache retries on
// first access.
func (a *Application) Serve(ctx context.Context) error {
	if _, err := a.categories.Get(ctx); err != nil {
		a.logger.Warn("category cache warm-up failed, will retry on demand", "error", err)
	}

	limiter := ratelimit.New(a.cfg.Server.RateLimit, a.cfg.Server.RateWindow,
		nil, a.logger.With("component", "ratelimit"))

	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	srv := server.New(addr, server.Deps{
		Classifier:     a.classifier,
		Limiter:        limiter,
		Categories:     a.categories,
		Status:         a.aggregator,
		Logger:         a.logger.With("component", "server"),
		RequestTimeout: a.cfg.Classify.RequestTimeout,
	})

	a.logger.Info("starting classification service", "addr", addr,
		"lists", a.cfg.Classify.ListIDs, "threshold", a.cfg.Classify.Threshold)
	return srv.Run(ctx)
}

// RunBatch classifies every link in the configured input list and applies
// the resulting assignments. Live runs verify both upstreams first so a
// dead backend fails fast instead of mid-batch.
func (a *Application) RunBatch(ctx context.Context) error {
	if a.cfg.Batch.InputListID <= 0 {
		return fmt.Errorf("batch run requires an input list id, got %d", a.cfg.Batch.InputListID)
	}

	if !a.cfg.Batch.DryRun {
		if err := a.bookmarks.Probe(ctx); err != nil {
			return fmt.Errorf("bookmark service unreachable: %w", err)
		}
		if err := a.inference.Probe(ctx); err != nil {
			return fmt.Errorf("inference backend unreachable: %w", err)
		}
	}

	exec := executor.New(a.bookmarks, a.classifier, a.logger.With("component", "executor"))
	summary, err := exec.RunBatch(ctx, executor.Options{
		InputListID: a.cfg.Batch.InputListID,
		Concurrency: a.cfg.Batch.Concurrency,
		DryRun:      a.cfg.Batch.DryRun,
		ApplyAll:    a.cfg.Batch.ApplyAll,
	})
	if err != nil {
		return err
	}

	a.logger.Info("batch run finished",
		"run_id", summary.RunID,
		"dry_run", summary.DryRun,
		"total", summary.Total,
		"applied", summary.Applied,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)

	if a.cfg.Batch.OutputFile != "" {
		if err := output.WriteSummary(a.cfg.Batch.OutputFile, summary); err != nil {
			return fmt.Errorf("save batch results: %w", err)
		}
		a.logger.Info("batch results saved", "file", a.cfg.Batch.OutputFile)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("batch finished with %d failed links", summary.Failed)
	}
	return nil
}
