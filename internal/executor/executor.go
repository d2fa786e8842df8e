package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"LinkClassifier/internal/domain"
	"LinkClassifier/internal/ports"
)

const (
	defaultConcurrency = 4
	defaultMaxAttempts = 3
)

// Options parameterize one batch run.
type Options struct {
	InputListID int
	Concurrency int
	DryRun      bool
	// ApplyAll assigns the link to every list above the threshold instead
	// of only the top decision.
	ApplyAll bool
}

// Executor performs the remove-from-source / add-to-targets transaction
// for a batch of links. One link's terminal failure never aborts the rest
// of the run.
type Executor struct {
	bookmarks  ports.BookmarkService
	classifier ports.Classifier
	logger     *slog.Logger

	maxAttempts     uint
	initialInterval time.Duration
}

// New wires the executor. The retry schedule covers only the bookmark
// service mutation steps; classification failures are terminal per job.
func New(bookmarks ports.BookmarkService, classifier ports.Classifier, logger *slog.Logger) *Executor {
	return &Executor{
		bookmarks:       bookmarks,
		classifier:      classifier,
		logger:          logger,
		maxAttempts:     defaultMaxAttempts,
		initialInterval: 500 * time.Millisecond,
	}
}

// RunBatch classifies every link in the input list and applies accepted
// decisions. Links are processed by a bounded worker pool; each worker
// owns its job slot, and the summary is aggregated only after all workers
// finish.
func (e *Executor) RunBatch(ctx context.Context, opts Options) (domain.BatchSummary, error) {
	started := time.Now()

	links, err := e.bookmarks.ListLinks(ctx, opts.InputListID)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("load input list %d: %w", opts.InputListID, err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	e.log().Info("batch run started",
		"input_list", opts.InputListID, "links", len(links),
		"dry_run", opts.DryRun, "concurrency", concurrency)

	jobs := make([]domain.AssignmentJob, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, link := range links {
		g.Go(func() error {
			jobs[i] = e.processLink(gctx, link, opts)
			return nil
		})
	}
	_ = g.Wait() // workers record failures in their job, never abort the run

	summary := summarize(jobs, opts, started)
	summary.RunID = uuid.NewString()

	e.log().Info("batch run finished",
		"run_id", summary.RunID, "total", summary.Total,
		"applied", summary.Applied, "skipped", summary.Skipped, "failed", summary.Failed,
		"duration", summary.Duration)

	return summary, nil
}

func (e *Executor) processLink(ctx context.Context, link domain.Link, opts Options) domain.AssignmentJob {
	job := domain.AssignmentJob{
		Link:        link,
		InputListID: opts.InputListID,
		State:       domain.JobPending,
		DryRun:      opts.DryRun,
	}

	decision, err := e.classifier.ClassifyURL(ctx, link.URL)
	if err != nil {
		job.State = domain.JobFailed
		job.Err = err
		if errors.Is(err, context.DeadlineExceeded) {
			job.Reason = "classification timed out"
		} else {
			job.Reason = "classification failed"
		}
		e.log().Warn("link classification failed", "url", link.URL, "error", err)
		return job
	}
	job.Decision = decision

	if len(decision.Classifications) == 0 {
		job.State = domain.JobSkipped
		job.Reason = domain.SkipNoClassification
		return job
	}

	targets := decision.Classifications[:1]
	if opts.ApplyAll {
		targets = decision.Classifications
	}

	if opts.DryRun {
		job.State = domain.JobApplied
		job.Applied = targets
		job.Reason = "dry run"
		e.log().Info("dry run: would move link",
			"url", link.URL, "targets", listIDs(targets))
		return job
	}

	job.State = domain.JobAttempted

	for _, target := range targets {
		if err := e.withRetry(ctx, func() error {
			return e.bookmarks.AddLinkToList(ctx, link.ID, target.ListID)
		}); err != nil {
			// Add failed: the input list still contains the link, remove is
			// never attempted.
			job.State = domain.JobFailed
			job.Err = err
			job.Reason = fmt.Sprintf("add to list %d failed", target.ListID)
			e.log().Error("add step failed", "url", link.URL, "target", target.ListID, "error", err)
			return job
		}
	}

	if err := e.withRetry(ctx, func() error {
		return e.bookmarks.RemoveLinkFromList(ctx, link.ID, opts.InputListID)
	}); err != nil {
		// The link is now a member of both the input and target lists.
		// Report the partial state explicitly; do not re-attempt the
		// remove inside this job.
		job.State = domain.JobFailed
		job.Err = &domain.PartialAssignmentError{
			LinkID:       link.ID,
			InputListID:  opts.InputListID,
			TargetListID: targets[0].ListID,
			Err:          err,
		}
		job.Reason = "remove from input list failed after add"
		e.log().Error("partial assignment", "url", link.URL, "error", job.Err)
		return job
	}

	job.State = domain.JobApplied
	job.Applied = targets
	e.log().Info("moved link", "url", link.URL, "targets", listIDs(targets))
	return job
}

// withRetry runs one bookmark-service step with bounded exponential
// backoff. Only transient failures (transport errors, 5xx) are retried.
func (e *Executor) withRetry(ctx context.Context, step func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.initialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := step()
		if err == nil {
			return struct{}{}, nil
		}
		if !transient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(e.maxAttempts))

	return err
}

// transient reports whether a bookmark-service failure is worth retrying:
// transport-level errors and 5xx statuses, plus timeouts.
func transient(err error) bool {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status == 0 || upstream.Status >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func summarize(jobs []domain.AssignmentJob, opts Options, started time.Time) domain.BatchSummary {
	summary := domain.BatchSummary{
		InputListID: opts.InputListID,
		DryRun:      opts.DryRun,
		Total:       len(jobs),
		PerCategory: map[int]int{},
		Started:     started,
		Duration:    time.Since(started),
		Jobs:        jobs,
	}

	var sum float64
	var applied int
	for _, job := range jobs {
		switch job.State {
		case domain.JobApplied:
			summary.Applied++
			for _, c := range job.Applied {
				summary.PerCategory[c.ListID]++
				sum += c.Confidence
				applied++
				if applied == 1 || c.Confidence < summary.Confidence.Min {
					summary.Confidence.Min = c.Confidence
				}
				if c.Confidence > summary.Confidence.Max {
					summary.Confidence.Max = c.Confidence
				}
			}
		case domain.JobSkipped:
			summary.Skipped++
		case domain.JobFailed:
			summary.Failed++
		}
	}
	if applied > 0 {
		summary.Confidence.Mean = sum / float64(applied)
	}

	return summary
}

func listIDs(candidates []domain.Candidate) []int {
	ids := make([]int, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ListID
	}
	return ids
}

func (e *Executor) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
