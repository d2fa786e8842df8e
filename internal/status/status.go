package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"LinkClassifier/internal/domain"
	"LinkClassifier/internal/ports"
)

// probeTimeout bounds each upstream liveness check.
const probeTimeout = 5 * time.Second

// ServiceName identifies this service in status responses.
const ServiceName = "LinkAce Classification Service"

// Upstream liveness values reported per dependency.
const (
	Connected    = "connected"
	Disconnected = "disconnected"
	Error        = "error"
)

// Report is the aggregated service status.
type Report struct {
	Service     string           `json:"service"`
	Timestamp   string           `json:"timestamp"`
	LinkAceAPI  string           `json:"linkace_api"`
	Ollama      string           `json:"ollama"`
	Cache       domain.CacheInfo `json:"classification_lists"`
}

// Aggregator probes both upstreams independently and reports cache
// freshness. Status never fails its caller: probe failures become status
// values.
type Aggregator struct {
	bookmarks ports.BookmarkService
	inference ports.InferenceClient
	cache     ports.CategorySource
	logger    *slog.Logger
	now       func() time.Time
}

// New wires the aggregator. A nil clock defaults to time.Now.
func New(bookmarks ports.BookmarkService, inference ports.InferenceClient, cache ports.CategorySource, clock func() time.Time, logger *slog.Logger) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{
		bookmarks: bookmarks,
		inference: inference,
		cache:     cache,
		logger:    logger,
		now:       clock,
	}
}

// Status probes both upstreams concurrently; a failing probe on one never
// blocks or fails the other.
func (a *Aggregator) Status(ctx context.Context) Report {
	report := Report{
		Service:   ServiceName,
		Timestamp: a.now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.LinkAceAPI = a.probe(ctx, "linkace", a.bookmarks.Probe)
	}()
	go func() {
		defer wg.Done()
		report.Ollama = a.probe(ctx, "ollama", a.inference.Probe)
	}()
	wg.Wait()

	report.Cache = a.cache.Info()
	return report
}

func (a *Aggregator) probe(ctx context.Context, name string, check func(context.Context) error) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := check(ctx)
	if err == nil {
		return Connected
	}

	if a.logger != nil {
		a.logger.Warn("upstream probe failed", "upstream", name, "error", err)
	}
	if ctx.Err() != nil {
		return Error
	}
	return Disconnected
}
