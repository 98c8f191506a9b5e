package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter is the process-local fallback used while Redis is unreachable.
// Each identity keeps the timestamps of its admitted events, oldest first.
type MemoryLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		events: make(map[string][]time.Time),
		log:    log,
		now:    time.Now,
	}
}

// Check admits the event when fewer than limit events fall inside the window.
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := dropBefore(m.events[key], now.Add(-window))
	if len(seen) < limit {
		seen = append(seen, now)
		m.events[key] = seen
		return &Decision{Allowed: true, Remaining: remaining(limit, len(seen))}, nil
	}

	m.events[key] = seen
	d := &Decision{Allowed: false}
	if len(seen) > 0 {
		d.RetryAfter = seen[0].Add(window).Sub(now)
	}
	return d, nil
}

// Forget drops identities whose last event is older than maxAge.
func (m *MemoryLimiter) Forget(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for key, seen := range m.events {
		if len(seen) == 0 || seen[len(seen)-1].Before(cutoff) {
			delete(m.events, key)
			dropped++
		}
	}
	return dropped
}

func dropBefore(seen []time.Time, start time.Time) []time.Time {
	i := 0
	for i < len(seen) && seen[i].Before(start) {
		i++
	}
	return seen[i:]
}
