package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	errors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/pkg/logger"
)

// Notifier sends a catalog message to an identity.
type Notifier interface {
	Notify(ctx context.Context, to, key string) error
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, notifier Notifier) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, t *handlers.Turn) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					key := errors.MessageGeneric
					if errHandler != nil {
						appErr := errors.NewStateError(fmt.Sprintf("panic recovered: %v", r))
						if msg, _ := errHandler.Handle(ctx, appErr); msg != "" {
							key = msg
						}
					}

					if notifier != nil && t != nil {
						if sendErr := notifier.Notify(ctx, t.Event.Identity, key); sendErr != nil {
							log.ErrorContext(ctx, "failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(ctx, t)
		}
	}
}

// ErrorHandlingMiddleware turns a failed turn into a single bilingual error
// message. The conversation is left as the handler saved it, so the next
// message retries the same step.
func ErrorHandlingMiddleware(errHandler *errors.Handler, notifier Notifier, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, t *handlers.Turn) error {
			err := next(ctx, t)
			if err == nil {
				return nil
			}

			key := errors.MessageGeneric
			if errHandler != nil {
				if msg, _ := errHandler.Handle(ctx, err); msg != "" {
					key = msg
				}
			}

			if notifier != nil {
				if sendErr := notifier.Notify(ctx, t.Event.Identity, key); sendErr != nil {
					log.ErrorContext(ctx, "failed to send error message", slog.String("identity", t.Event.Identity), slog.Any("error", sendErr))
				}
			}

			return nil
		}
	}
}

// LoggingMiddleware assigns a correlation id to the turn and logs its outcome.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, t *handlers.Turn) error {
			ctx = logger.WithCorrelationID(ctx, "")
			start := time.Now()

			log.InfoContext(ctx, "handling event",
				slog.String("identity", t.Event.Identity),
				slog.String("modality", string(t.Event.Modality)),
				slog.String("message_id", t.Event.MessageID),
			)

			err := next(ctx, t)

			log.InfoContext(ctx, "handled event",
				slog.String("identity", t.Event.Identity),
				slog.String("state", string(t.State())),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}
