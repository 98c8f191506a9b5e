// Package idempotency suppresses duplicate deliveries of the same inbound message.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress is returned when another worker holds the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation does the work once and returns a short outcome label.
type Operation func(ctx context.Context) (string, error)

// Result reports the outcome and whether it came from an earlier run.
type Result struct {
	Outcome   string
	FromCache bool
}

type Manager interface {
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn Operation,
	) (*Result, error)
}

type manager struct {
	store   Store
	log     *slog.Logger
	lockTTL time.Duration
	poll    time.Duration
	now     func() time.Time
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		log:     log,
		lockTTL: 5 * time.Minute,
		poll:    100 * time.Millisecond,
		now:     time.Now,
	}
}

// Execute runs fn at most once per key within ttl. A failed fn leaves no record,
// so a redelivery runs it again.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		record, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if record != nil && record.Status == StatusCompleted {
			return &Result{Outcome: record.Outcome, FromCache: true}, nil
		}

		locked, err := m.store.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return nil, err
		}

		if !locked {
			if record != nil && record.Status == StatusProcessing {
				return nil, ErrRequestInProgress
			}

			// The holder has not written a record yet; wait for it or for the lock to clear.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.poll):
				continue
			}
		}

		return m.run(ctx, key, ttl, fn)
	}
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("idempotency lock not released", slog.String("key", key), slog.Any("error", err))
		}
	}()

	if err := m.store.Set(ctx, key, &Record{Status: StatusProcessing}, m.lockTTL); err != nil {
		return nil, err
	}

	outcome, err := fn(ctx)
	if err != nil {
		if clearErr := m.store.Delete(context.WithoutCancel(ctx), key); clearErr != nil {
			m.log.Warn("idempotency record not cleared", slog.String("key", key), slog.Any("error", clearErr))
		}
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:      StatusCompleted,
		Outcome:     outcome,
		CompletedAt: m.now().UTC(),
	}, ttl); err != nil {
		return nil, err
	}

	return &Result{Outcome: outcome}, nil
}
