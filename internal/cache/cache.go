package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"LinkClassifier/internal/domain"
	"LinkClassifier/internal/ports"
	"LinkClassifier/internal/validation"
)

// FetchFunc retrieves all links of one classification list.
type FetchFunc func(ctx context.Context, listID int) ([]domain.Link, error)

// defaultRetryBackoff is the minimum spacing between refresh attempts
// after a failure, so a dead upstream does not trigger a refresh storm.
const defaultRetryBackoff = 15 * time.Second

// Cache holds category reference data with time-based staleness. Refresh
// is lazy on access and all-or-nothing: readers observe either the prior
// snapshot or a fully updated one, never an intermediate state.
type Cache struct {
	listIDs      []int
	fetch        FetchFunc
	ttl          time.Duration
	retryBackoff time.Duration
	now          func() time.Time
	logger       *slog.Logger

	refreshMu sync.Mutex // single writer

	mu            sync.RWMutex
	snapshot      map[int]domain.Category
	lastRefreshed time.Time
	lastAttempt   time.Time
}

var _ ports.CategorySource = (*Cache)(nil)

// New builds an empty cache over the configured list ids. A nil clock
// defaults to time.Now.
func New(listIDs []int, fetch FetchFunc, ttl time.Duration, clock func() time.Time, logger *slog.Logger) *Cache {
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		listIDs:      listIDs,
		fetch:        fetch,
		ttl:          ttl,
		retryBackoff: defaultRetryBackoff,
		now:          clock,
		logger:       logger,
	}
}

// Get returns the current category snapshot, refreshing first when the
// cache is empty or stale. When a refresh fails but a prior snapshot
// exists, that snapshot remains authoritative and is returned instead.
// Callers must treat the returned map as read-only.
func (c *Cache) Get(ctx context.Context) (map[int]domain.Category, error) {
	if snapshot, ok := c.current(); ok {
		return snapshot, nil
	}

	err := c.Refresh(ctx)

	c.mu.RLock()
	snapshot := c.snapshot
	c.mu.RUnlock()

	if snapshot != nil {
		if err != nil {
			c.log().Warn("serving stale categories after failed refresh", "error", err)
		}
		return snapshot, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Refresh fetches every configured list and atomically swaps in the new
// snapshot. A failure on any list fails the whole refresh and leaves the
// previous snapshot untouched; the attempt timestamp still advances so
// retries are spaced by the backoff interval.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have completed the refresh while we waited, and a
	// recent failure holds new attempts back.
	if _, ok := c.current(); ok {
		return nil
	}
	c.mu.RLock()
	lastAttempt := c.lastAttempt
	populated := c.snapshot != nil
	c.mu.RUnlock()
	if populated && c.now().Sub(lastAttempt) < c.retryBackoff {
		return nil
	}

	next := make(map[int]domain.Category, len(c.listIDs))
	for _, listID := range c.listIDs {
		links, err := c.fetch(ctx, listID)
		if err != nil {
			c.mu.Lock()
			c.lastAttempt = c.now()
			c.mu.Unlock()
			return fmt.Errorf("refresh list %d: %w", listID, err)
		}
		next[listID] = domain.Category{
			ListID:  listID,
			Links:   links,
			Domains: validation.SampleDomains(links),
		}
	}

	now := c.now()
	c.mu.Lock()
	c.snapshot = next
	c.lastRefreshed = now
	c.lastAttempt = now
	c.mu.Unlock()

	total := 0
	for _, cat := range next {
		total += len(cat.Links)
	}
	c.log().Info("reference cache refreshed", "lists", len(next), "total_links", total)

	return nil
}

// Info reports counts and freshness without triggering a refresh.
func (c *Cache) Info() domain.CacheInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := domain.CacheInfo{Status: domain.CacheEmpty}
	if c.snapshot == nil {
		return info
	}

	info.Count = len(c.snapshot)
	for _, cat := range c.snapshot {
		info.TotalLinks += len(cat.Links)
	}
	if c.now().Sub(c.lastRefreshed) < c.ttl {
		info.Status = domain.CacheFresh
	} else {
		info.Status = domain.CacheStale
	}
	return info
}

// current returns the snapshot when it is populated and fresh.
func (c *Cache) current() (map[int]domain.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return nil, false
	}
	if c.now().Sub(c.lastRefreshed) >= c.ttl {
		return nil, false
	}
	return c.snapshot, true
}

func (c *Cache) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
