// Package handlers processes the periodic maintenance tasks.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/bazaar-bot/internal/jobs"
)

// MediaCleaner removes stored files older than maxAge.
type MediaCleaner interface {
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}

// Sweeper removes stale entries and reports how many.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ConversationCleaner clears idle conversations.
type ConversationCleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

type MediaCleanupHandler struct {
	cleaner MediaCleaner
	log     *slog.Logger
}

func NewMediaCleanupHandler(cleaner MediaCleaner, log *slog.Logger) *MediaCleanupHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MediaCleanupHandler{cleaner: cleaner, log: log}
}

func (h *MediaCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.MediaCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "media cleanup: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	removed, err := h.cleaner.Cleanup(ctx, payload.MaxAge)
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "media cleanup finished", slog.Int("removed", removed))
	return nil
}

type ConversationCleanupHandler struct {
	cleaner ConversationCleaner
	log     *slog.Logger
}

func NewConversationCleanupHandler(cleaner ConversationCleaner, log *slog.Logger) *ConversationCleanupHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationCleanupHandler{cleaner: cleaner, log: log}
}

func (h *ConversationCleanupHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	removed, err := h.cleaner.Cleanup(ctx)
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "conversation cleanup finished", slog.Int("cleared", removed))
	return nil
}

// KeySweepHandler runs every sweeper; one failing does not stop the others.
type KeySweepHandler struct {
	sweepers map[string]Sweeper
	log      *slog.Logger
}

func NewKeySweepHandler(sweepers map[string]Sweeper, log *slog.Logger) *KeySweepHandler {
	if log == nil {
		log = slog.Default()
	}
	return &KeySweepHandler{sweepers: sweepers, log: log}
}

func (h *KeySweepHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	var firstErr error
	for name, s := range h.sweepers {
		removed, err := s.Sweep(ctx)
		if err != nil {
			h.log.WarnContext(ctx, "key sweep failed", slog.String("sweeper", name), slog.Any("error", err))
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", name, err)
			}
			continue
		}
		h.log.DebugContext(ctx, "key sweep finished", slog.String("sweeper", name), slog.Int("removed", removed))
	}
	return firstErr
}
