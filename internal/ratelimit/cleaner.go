package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner trims rate-limit windows left behind by senders who went quiet.
type Cleaner struct {
	redisClient *redis.Client
	memory      *MemoryLimiter
	log         *slog.Logger
	maxAge      time.Duration
}

// NewCleaner constructs a Cleaner. memory may be nil.
func NewCleaner(client *redis.Client, memory *MemoryLimiter, log *slog.Logger, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}

	return &Cleaner{
		redisClient: client,
		memory:      memory,
		log:         log,
		maxAge:      maxAge,
	}
}

// Sweep removes entries older than maxAge and deletes emptied keys. It returns the number of keys removed.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	if c.memory != nil {
		if n := c.memory.Forget(c.maxAge); n > 0 {
			c.log.Debug("rate limit memory entries forgotten", slog.Int("identities", n))
		}
	}
	if c.redisClient == nil {
		return 0, nil
	}

	const scanCount = 100

	cutoff := time.Now().Add(-c.maxAge).UnixMilli()
	var cursor uint64
	cleaned := 0

	for {
		keys, nextCursor, err := c.redisClient.Scan(ctx, cursor, keyPrefix+"*", scanCount).Result()
		if err != nil {
			c.log.Error("rate limit scan failed", slog.Any("error", err))
			return cleaned, err
		}

		for _, key := range keys {
			pipe := c.redisClient.TxPipeline()
			pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff))
			cardCmd := pipe.ZCard(ctx, key)
			if _, err := pipe.Exec(ctx); err != nil {
				c.log.Warn("cleanup pipeline failed", slog.String("key", key), slog.Any("error", err))
				continue
			}

			if cardCmd.Val() == 0 {
				if err := c.redisClient.Del(ctx, key).Err(); err != nil {
					c.log.Warn("failed to delete empty rate limit key", slog.String("key", key), slog.Any("error", err))
					continue
				}
				cleaned++
			}
		}

		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}

	if cleaned > 0 {
		c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", cleaned))
	}

	return cleaned, nil
}
