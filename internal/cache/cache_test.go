package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LinkClassifier/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func staticFetch(links map[int][]domain.Link, calls *atomic.Int64) FetchFunc {
	return func(_ context.Context, listID int) ([]domain.Link, error) {
		if calls != nil {
			calls.Add(1)
		}
		return links[listID], nil
	}
}

func TestGetRefreshesEmptyCache(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	var calls atomic.Int64
	fetch := staticFetch(map[int][]domain.Link{
		1: {{ID: 10, URL: "https://a.com/x"}},
		2: {{ID: 20, URL: "https://b.com/y"}, {ID: 21, URL: "https://b.com/z"}},
	}, &calls)

	c := New([]int{1, 2}, fetch, 5*time.Minute, clock.Now, nil)
	require.Equal(t, domain.CacheEmpty, c.Info().Status)

	snapshot, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, []string{"b.com"}, snapshot[2].Domains)

	info := c.Info()
	assert.Equal(t, domain.CacheFresh, info.Status)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, 3, info.TotalLinks)
	assert.Equal(t, int64(2), calls.Load(), "one fetch per configured list")
}

func TestGetServesSnapshotWithoutRefetch(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	var calls atomic.Int64
	c := New([]int{1}, staticFetch(map[int][]domain.Link{1: {{ID: 1, URL: "https://a.com"}}}, &calls), 5*time.Minute, clock.Now, nil)

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	_, err = c.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load(), "fresh cache must not refetch")
}

func TestGetRefreshesOnceAfterTTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	var calls atomic.Int64
	c := New([]int{1}, staticFetch(map[int][]domain.Link{1: {{ID: 1, URL: "https://a.com"}}}, &calls), 5*time.Minute, clock.Now, nil)

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(5*time.Minute + time.Second)
	assert.Equal(t, domain.CacheStale, c.Info().Status)

	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "stale cache triggers exactly one refresh")
	assert.Equal(t, domain.CacheFresh, c.Info().Status)
}

func TestFailedRefreshKeepsPriorSnapshot(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	healthy := true
	fetch := func(_ context.Context, listID int) ([]domain.Link, error) {
		if !healthy {
			return nil, errors.New("connection refused")
		}
		return []domain.Link{{ID: 1, URL: "https://a.com"}}, nil
	}

	c := New([]int{1}, fetch, 5*time.Minute, clock.Now, nil)
	_, err := c.Get(context.Background())
	require.NoError(t, err)

	healthy = false
	clock.Advance(6 * time.Minute)

	snapshot, err := c.Get(context.Background())
	require.NoError(t, err, "stale snapshot remains authoritative on refresh failure")
	require.Len(t, snapshot, 1)

	// Never silently fresh after a failed refresh.
	assert.Equal(t, domain.CacheStale, c.Info().Status)
}

func TestFailedRefreshOnEmptyCacheReturnsError(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	fetch := func(_ context.Context, _ int) ([]domain.Link, error) {
		return nil, errors.New("connection refused")
	}

	c := New([]int{1}, fetch, 5*time.Minute, clock.Now, nil)
	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.CacheEmpty, c.Info().Status)
}

func TestPartialFetchFailureFailsWholeRefresh(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	fetch := func(_ context.Context, listID int) ([]domain.Link, error) {
		if listID == 2 {
			return nil, errors.New("boom")
		}
		return []domain.Link{{ID: 1, URL: "https://a.com"}}, nil
	}

	c := New([]int{1, 2}, fetch, 5*time.Minute, clock.Now, nil)
	_, err := c.Get(context.Background())
	require.Error(t, err, "a failing subset must fail the whole refresh")
	assert.Equal(t, domain.CacheEmpty, c.Info().Status, "no partial cache updates")
}

func TestRefreshBackoffAfterFailure(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	var calls atomic.Int64
	healthy := atomic.Bool{}
	healthy.Store(true)
	fetch := func(_ context.Context, _ int) ([]domain.Link, error) {
		calls.Add(1)
		if !healthy.Load() {
			return nil, errors.New("boom")
		}
		return []domain.Link{{ID: 1, URL: "https://a.com"}}, nil
	}

	c := New([]int{1}, fetch, 5*time.Minute, clock.Now, nil)
	_, err := c.Get(context.Background())
	require.NoError(t, err)

	healthy.Store(false)
	clock.Advance(6 * time.Minute)

	_, _ = c.Get(context.Background())
	failedCalls := calls.Load()

	// Within the retry backoff no further upstream calls are made.
	clock.Advance(time.Second)
	_, _ = c.Get(context.Background())
	assert.Equal(t, failedCalls, calls.Load())

	clock.Advance(defaultRetryBackoff)
	_, _ = c.Get(context.Background())
	assert.Greater(t, calls.Load(), failedCalls)
}

func TestConcurrentGetSingleRefresh(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(5000, 0)}
	var calls atomic.Int64
	c := New([]int{1}, staticFetch(map[int][]domain.Link{1: {{ID: 1, URL: "https://a.com"}}}, &calls), 5*time.Minute, clock.Now, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent gets share one refresh")
}
