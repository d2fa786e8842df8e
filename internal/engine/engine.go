package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"LinkClassifier/internal/domain"
	"LinkClassifier/internal/ports"
	"LinkClassifier/internal/validation"
)

// Deps wires the driven adapters into the classification engine.
type Deps struct {
	Categories ports.CategorySource
	Inference  ports.InferenceClient
	Threshold  float64
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Engine combines cached category context with inference output and
// applies the threshold and tie-break policy. ClassifyURL is a pure
// decision operation: it never mutates list memberships and is safe to
// call concurrently.
type Engine struct {
	categories ports.CategorySource
	inference  ports.InferenceClient
	threshold  float64
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.Classifier = (*Engine)(nil)

// New constructs the engine. A nil clock defaults to time.Now.
func New(deps Deps) *Engine {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Engine{
		categories: deps.Categories,
		inference:  deps.Inference,
		threshold:  deps.Threshold,
		logger:     deps.Logger,
		now:        now,
	}
}

// ClassifyURL validates and normalizes the URL, fetches category context,
// invokes inference, and returns candidates at or above the threshold
// sorted by descending confidence with ties broken by ascending list id.
func (e *Engine) ClassifyURL(ctx context.Context, rawURL string) (domain.Decision, error) {
	start := e.now()

	if err := validation.ValidateURL(rawURL); err != nil {
		return domain.Decision{URL: rawURL}, err
	}
	normalized := validation.NormalizeURL(rawURL)

	link := domain.Link{
		URL:         normalized,
		Title:       validation.TitleFromURL(normalized),
		Description: "Link from " + validation.ExtractDomain(normalized),
	}

	categories, err := e.categories.Get(ctx)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) == 0 {
		return domain.Decision{}, fmt.Errorf("no classification lists available")
	}

	candidates, err := e.inference.Classify(ctx, link, categories)
	if err != nil {
		return domain.Decision{}, err
	}

	accepted := Rank(candidates, e.threshold)

	if e.logger != nil {
		e.logger.Info("classified url",
			"url", rawURL, "normalized", normalized,
			"candidates", len(candidates), "accepted", len(accepted))
	}

	return domain.Decision{
		URL:             rawURL,
		NormalizedURL:   normalized,
		Classifications: accepted,
		Elapsed:         e.now().Sub(start),
	}, nil
}

// Rank filters candidates to confidence >= threshold and orders them by
// descending confidence, ties broken by ascending list id for
// determinism.
func Rank(candidates []domain.Candidate, threshold float64) []domain.Candidate {
	accepted := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence >= threshold {
			accepted = append(accepted, c)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].Confidence != accepted[j].Confidence {
			return accepted[i].Confidence > accepted[j].Confidence
		}
		return accepted[i].ListID < accepted[j].ListID
	})

	return accepted
}
