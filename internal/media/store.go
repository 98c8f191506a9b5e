// Package media keeps payment proof images on local disk.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxAge is how long stored files are kept.
const DefaultMaxAge = 7 * 24 * time.Hour

// FSStore writes files under <root>/<identity>/.
type FSStore struct {
	root string
	log  *slog.Logger
	now  func() time.Time
}

func NewFSStore(root string, log *slog.Logger) (*FSStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if root == "" {
		return nil, fmt.Errorf("media: storage path is empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("media: create storage dir: %w", err)
	}

	return &FSStore{root: root, log: log, now: time.Now}, nil
}

// Save writes a payment proof and returns its path.
func (s *FSStore) Save(ctx context.Context, identity string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := s.identityDir(identity)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("media: create identity dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("payment_%d.jpg", s.now().UnixMilli()))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("media: write file: %w", err)
	}

	s.log.InfoContext(ctx, "payment proof stored", slog.String("identity", identity), slog.String("path", path), slog.Int("bytes", len(data)))
	return path, nil
}

// Cleanup deletes files older than maxAge and returns how many went away.
// Per-file failures are logged and skipped.
func (s *FSStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	cutoff := s.now().Add(-maxAge)

	dirs, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("media: read storage dir: %w", err)
	}

	removed := 0
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		dirPath := filepath.Join(s.root, d.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			s.log.WarnContext(ctx, "media cleanup: read dir failed", slog.String("dir", dirPath), slog.Any("error", err))
			continue
		}

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			info, err := f.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}

			path := filepath.Join(dirPath, f.Name())
			if err := os.Remove(path); err != nil {
				s.log.WarnContext(ctx, "media cleanup: remove failed", slog.String("path", path), slog.Any("error", err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.log.InfoContext(ctx, "old media removed", slog.Int("files", removed), slog.Duration("max_age", maxAge))
	}
	return removed, nil
}

func (s *FSStore) identityDir(identity string) (string, error) {
	clean := filepath.Base(filepath.Clean("/" + identity))
	if clean == "/" || clean == "." || clean == "" || strings.ContainsAny(clean, `\`) {
		return "", fmt.Errorf("media: invalid identity %q", identity)
	}
	return filepath.Join(s.root, clean), nil
}
