package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	conversationLockKeyPattern = "conversation:lock:%s"
	lockTTL                    = 30 * time.Second
	lockPollInterval           = 50 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes turns per identity with a Redis SETNX lock.
type Locker struct {
	client *redis.Client
	log    *slog.Logger
	wait   time.Duration
}

// NewLocker builds a Locker that waits up to wait for a busy lock.
func NewLocker(client *redis.Client, log *slog.Logger, wait time.Duration) *Locker {
	if log == nil {
		log = slog.Default()
	}

	return &Locker{client: client, log: log, wait: wait}
}

// Acquire blocks until the identity's lock is held, wait elapses (ErrStateLocked) or ctx ends.
// The returned func releases the lock.
func (l *Locker) Acquire(ctx context.Context, identity string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf(conversationLockKeyPattern, identity)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			l.log.Error("failed to acquire conversation lock", "identity", identity, "error", err)
			return nil, err
		}
		if acquired {
			break
		}

		if time.Now().After(deadline) {
			l.log.Warn("conversation lock already held", "identity", identity)
			return nil, ErrStateLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}

	release := func() {
		// Release on a fresh context so a cancelled turn still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Error("failed to release conversation lock", "identity", identity, "error", err)
		}
	}

	return release, nil
}
