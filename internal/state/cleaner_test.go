package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleaner_RemovesIdleConversations(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, testLogger(), 0)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	_, err := store.GetOrCreate(ctx, "old")
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(50 * time.Minute) }
	_, err = store.GetOrCreate(ctx, "fresh")
	require.NoError(t, err)

	cleaner := NewCleaner(store, testLogger(), 30*time.Minute)
	cleaner.now = func() time.Time { return base.Add(time.Hour) }

	removed, err := cleaner.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fresh", all[0].Identity)
}

func TestCleaner_DisabledWithoutTTL(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, testLogger(), 0)

	removed, err := NewCleaner(store, testLogger(), 0).Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
