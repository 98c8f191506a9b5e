package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner removes conversations idle longer than ttl.
type Cleaner struct {
	store Store
	log   *slog.Logger
	ttl   time.Duration
	now   func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(store Store, log *slog.Logger, ttl time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		store: store,
		log:   log,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Cleanup deletes stale conversations and returns how many were removed.
func (c *Cleaner) Cleanup(ctx context.Context) (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	conversations, err := c.store.GetAll(ctx)
	if err != nil {
		c.log.Error("state cleaner failed to list conversations", slog.Any("error", err))
		return 0, err
	}

	removed := 0
	for _, conv := range conversations {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if conv == nil || c.now().Sub(conv.LastActivity) <= c.ttl {
			continue
		}

		if err := c.store.Clear(ctx, conv.Identity); err != nil {
			c.log.Error("state cleaner failed to clear conversation", slog.String("identity", conv.Identity), slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		c.log.Info("stale conversations cleared", slog.Int("count", removed))
	}

	return removed, nil
}
