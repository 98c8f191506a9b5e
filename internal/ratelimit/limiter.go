// Package ratelimit throttles inbound events per sender.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Decision is the verdict for one inbound event.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the oldest counted event leaves the window.
	RetryAfter time.Duration
}

// Limiter counts events for an identity key within a sliding window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error)
}

// ErrLimitExceeded is returned by AdaptiveLimiter alongside a rejecting Decision.
var ErrLimitExceeded = errors.New("rate limit exceeded")

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
