package ports

import (
	"context"

	"LinkClassifier/internal/domain"
)

// BookmarkService wraps the LinkAce API surface the classifier consumes.
type BookmarkService interface {
	// ListLinks fetches every link in a list, following pagination to
	// completion before returning.
	ListLinks(ctx context.Context, listID int) ([]domain.Link, error)
	GetLink(ctx context.Context, linkID int) (domain.Link, error)
	// UpdateLink replaces a link's list memberships.
	UpdateLink(ctx context.Context, linkID int, listIDs []int) error
	AddLinkToList(ctx context.Context, linkID, listID int) error
	RemoveLinkFromList(ctx context.Context, linkID, listID int) error
	// Probe performs a lightweight liveness check.
	Probe(ctx context.Context) error
}

// InferenceClient sends a classification prompt to the inference backend
// and parses its output into typed candidates.
type InferenceClient interface {
	Classify(ctx context.Context, link domain.Link, categories map[int]domain.Category) ([]domain.Candidate, error)
	Probe(ctx context.Context) error
}

// Classifier produces a ranked decision set for one URL.
type Classifier interface {
	ClassifyURL(ctx context.Context, rawURL string) (domain.Decision, error)
}

// CategorySource exposes the reference cache to its consumers.
type CategorySource interface {
	// Get returns the current category snapshot, refreshing first when the
	// cache is empty or stale.
	Get(ctx context.Context) (map[int]domain.Category, error)
	Info() domain.CacheInfo
}

// Admitter gates inbound classify requests per client identifier.
type Admitter interface {
	Admit(clientID string) bool
}
