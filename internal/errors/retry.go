package errors

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often a retryable AppError is attempted again.
type RetryPolicy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// BootstrapPolicy is used while connecting to Postgres, Redis and the broker at start-up.
// Turns never retry: a failed turn is reported to the user and retried by their next message.
var BootstrapPolicy = RetryPolicy{
	Attempts: 4,
	Initial:  200 * time.Millisecond,
	Max:      5 * time.Second,
}

// WithRetry runs fn under BootstrapPolicy.
func WithRetry(ctx context.Context, fn func() error) error {
	return BootstrapPolicy.Do(ctx, fn)
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. Waits double from Initial up to Max.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil || !IsRetryable(err) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(p.wait(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p RetryPolicy) wait(attempt int) time.Duration {
	d := p.Initial
	for i := 1; i < attempt && (p.Max <= 0 || d < p.Max); i++ {
		d *= 2
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// IsRetryable reports whether err carries an AppError marked Retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}
	return false
}
