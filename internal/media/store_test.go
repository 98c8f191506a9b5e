package media

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, now time.Time) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestFSStore_Save(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	s := newStore(t, now)

	path, err := s.Save(context.Background(), "923001234567", []byte("jpeg"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(s.root, "923001234567", "payment_1700000000123.jpg"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestFSStore_SaveRejectsEmptyIdentity(t *testing.T) {
	s := newStore(t, time.Now())

	for _, identity := range []string{"", "/", "."} {
		_, err := s.Save(context.Background(), identity, []byte("x"))
		assert.Error(t, err, "identity %q", identity)
	}
}

func TestFSStore_SaveStaysUnderRoot(t *testing.T) {
	s := newStore(t, time.Now())

	path, err := s.Save(context.Background(), "../../etc", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.root, "etc"), filepath.Dir(path))
}

func TestFSStore_Cleanup(t *testing.T) {
	now := time.Now()
	s := newStore(t, now)
	ctx := context.Background()

	oldPath, err := s.Save(ctx, "111", []byte("old"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(oldPath, now.Add(-8*24*time.Hour), now.Add(-8*24*time.Hour)))

	s.now = func() time.Time { return now.Add(time.Millisecond) }
	freshPath, err := s.Save(ctx, "111", []byte("fresh"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.root, "stray.txt"), []byte("x"), 0o600))

	removed, err := s.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
	assert.FileExists(t, filepath.Join(s.root, "stray.txt"))
}
