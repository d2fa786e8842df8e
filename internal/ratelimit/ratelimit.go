package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"LinkClassifier/internal/ports"
)

// Limiter applies a fixed-window request counter per client identifier.
// Counters reset when their window elapses and keep no state across
// restarts. Admit never blocks.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*window
}

var _ ports.Admitter = (*Limiter)(nil)

const pruneThreshold = 1024

type window struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// New builds a limiter allowing max requests per windowDuration. A nil
// clock defaults to time.Now.
func New(max int, windowDuration time.Duration, clock func() time.Time, logger *slog.Logger) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		max:     max,
		window:  windowDuration,
		now:     clock,
		logger:  logger,
		clients: map[string]*window{},
	}
}

// Admit reports whether the client may proceed. Independent clients do not
// contend: the shared map lock is held only long enough to resolve the
// per-client window.
func (l *Limiter) Admit(clientID string) bool {
	w := l.client(clientID)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	if now.Sub(w.start) >= l.window {
		w.start = now
		w.count = 0
	}

	if w.count >= l.max {
		if l.logger != nil {
			l.logger.Debug("request rejected", "client", clientID, "count", w.count)
		}
		return false
	}

	w.count++
	return true
}

func (l *Limiter) client(clientID string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[clientID]
	if !ok {
		w = &window{start: l.now()}
		l.clients[clientID] = w
	}

	// Windows that lapsed a full interval ago carry no admission state;
	// prune them once the key space grows, so it tracks active clients.
	if len(l.clients) >= pruneThreshold {
		cutoff := l.now().Add(-2 * l.window)
		for id, other := range l.clients {
			if id == clientID {
				continue
			}
			if other.mu.TryLock() {
				expired := other.start.Before(cutoff)
				other.mu.Unlock()
				if expired {
					delete(l.clients, id)
				}
			}
		}
	}

	return w
}
