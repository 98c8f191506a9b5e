package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner removes idempotency keys that lost their expiry or carry an implausible one.
type Cleaner struct {
	client *redis.Client
	log    *slog.Logger
	maxTTL time.Duration
}

func NewCleaner(client *redis.Client, log *slog.Logger, maxTTL time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client: client,
		log:    log,
		maxTTL: maxTTL,
	}
}

// Sweep scans idempotency:* once and returns how many keys it deleted.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}

	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, "idempotency:*", 100).Result()
		if err != nil {
			c.log.Error("idempotency cleaner scan failed", slog.Any("error", err))
			return removed, err
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.log.Warn("failed to get key ttl", slog.String("key", key), slog.Any("error", err))
				continue
			}

			// -2 means the key vanished between SCAN and TTL.
			if ttl == -2 {
				continue
			}
			if ttl < 0 || ttl > c.maxTTL {
				if err := c.client.Del(ctx, key).Err(); err != nil {
					c.log.Warn("failed to delete stale idempotency key", slog.String("key", key), slog.Any("error", err))
					continue
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}
