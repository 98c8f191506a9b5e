package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// slidingWindow trims the window, admits the event when under the limit and
// returns {allowed, count, oldest}. Rejected events are not recorded.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call("ZREMRANGEBYSCORE", key, "-inf", "(" .. ARGV[2])
local count = redis.call("ZCARD", key)
if count < limit then
	redis.call("ZADD", key, now, ARGV[5])
	redis.call("PEXPIRE", key, ttl)
	return {1, count + 1, now}
end
local first = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
return {0, count, tonumber(first[2] or now)}
`)

// RedisLimiter implements Limiter using Redis sorted sets and a sliding window.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter implementation.
func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Check counts the event against the identity's window.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	if l.client == nil {
		return nil, errors.New("redis client is not configured for rate limiting")
	}

	now := l.now()
	if limit <= 0 {
		return &Decision{Allowed: false, RetryAfter: window}, nil
	}

	windowStart := now.Add(-window)
	res, err := slidingWindow.Run(ctx, l.client, []string{keyPrefix + key},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		limit,
		(2 * window).Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		l.log.Error("rate limiter script failed", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	d := &Decision{Allowed: res[0] == 1, Remaining: remaining(limit, int(res[1]))}
	if !d.Allowed {
		d.RetryAfter = time.UnixMilli(res[2]).Add(window).Sub(now)
	}
	return d, nil
}
