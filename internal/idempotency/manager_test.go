package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*redis.Client, *miniredis.Miniredis, Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return client, mr, NewRedisStore(client, log)
}

func TestExecuteRunsOnce(t *testing.T) {
	_, _, store := setupStore(t)
	m := NewManager(store, nil)
	ctx := context.Background()

	calls := 0
	op := func(context.Context) (string, error) {
		calls++
		return "handled", nil
	}

	first, err := m.Execute(ctx, "k1", time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "handled", first.Outcome)

	second, err := m.Execute(ctx, "k1", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "handled", second.Outcome)
	assert.Equal(t, 1, calls)
}

func TestExecuteFailureAllowsRetry(t *testing.T) {
	_, _, store := setupStore(t)
	m := NewManager(store, nil)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := m.Execute(ctx, "k2", time.Hour, func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	res, err := m.Execute(ctx, "k2", time.Hour, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.False(t, res.FromCache)
}

func TestExecuteInProgress(t *testing.T) {
	_, _, store := setupStore(t)
	m := NewManager(store, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := m.Execute(ctx, "k3", time.Hour, func(context.Context) (string, error) {
			close(started)
			<-release
			return "ok", nil
		})
		done <- err
	}()

	<-started
	_, err := m.Execute(ctx, "k3", time.Hour, func(context.Context) (string, error) { return "dup", nil })
	assert.ErrorIs(t, err, ErrRequestInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestExecuteRecordExpires(t *testing.T) {
	_, mr, store := setupStore(t)
	m := NewManager(store, nil)
	ctx := context.Background()

	_, err := m.Execute(ctx, "k4", time.Minute, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	res, err := m.Execute(ctx, "k4", time.Minute, func(context.Context) (string, error) { return "again", nil })
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, "again", res.Outcome)
}

func TestExecuteNilOperation(t *testing.T) {
	_, _, store := setupStore(t)
	_, err := NewManager(store, nil).Execute(context.Background(), "k", time.Minute, nil)
	assert.Error(t, err)
}

func TestCleanerSweep(t *testing.T) {
	client, _, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "idempotency:forever", "x", 0).Err())
	require.NoError(t, client.Set(ctx, "idempotency:long", "x", 48*time.Hour).Err())
	require.NoError(t, client.Set(ctx, "idempotency:fresh", "x", time.Hour).Err())
	require.NoError(t, client.Set(ctx, "other:forever", "x", 0).Err())

	removed, err := NewCleaner(client, nil, 25*time.Hour).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.Equal(t, int64(1), client.Exists(ctx, "idempotency:fresh").Val())
	assert.Equal(t, int64(1), client.Exists(ctx, "other:forever").Val())
}

func TestMessageKeyDeterministic(t *testing.T) {
	assert.Equal(t, MessageKey("923001234567", "m1"), MessageKey("923001234567", "m1"))
	assert.NotEqual(t, MessageKey("923001234567", "m1"), MessageKey("923001234567", "m2"))
}
