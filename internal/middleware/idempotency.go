package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	"github.com/Proton-105/bazaar-bot/internal/idempotency"
)

// DeliveryTTL is how long a processed message id is remembered.
const DeliveryTTL = 24 * time.Hour

const outcomeHandled = "handled"

// Idempotency ensures a redelivered message is handled at most once. Events
// without a message id pass straight through.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, t *handlers.Turn) error {
			if t.Event.MessageID == "" {
				return next(ctx, t)
			}

			key := idempotency.MessageKey(t.Event.Identity, t.Event.MessageID)
			result, err := manager.Execute(ctx, key, DeliveryTTL, func(execCtx context.Context) (string, error) {
				if err := next(execCtx, t); err != nil {
					return "", err
				}
				return outcomeHandled, nil
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					log.DebugContext(ctx, "message already in progress", slog.String("message_id", t.Event.MessageID))
					return nil
				}
				return err
			}

			if result != nil && result.FromCache {
				log.InfoContext(ctx, "duplicate message skipped",
					slog.String("identity", t.Event.Identity),
					slog.String("message_id", t.Event.MessageID),
				)
			}

			return nil
		}
	}
}
