package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/bazaar-bot/pkg/logger"
)

// unclassified describes errors that reach the handler without an AppError in their chain.
var unclassified = AppError{
	Code:        "unknown",
	Message:     "Unclassified error",
	UserMessage: MessageGeneric,
	Severity:    SeverityHigh,
}

// Handler is the single place a failed turn is logged, counted and reported.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
	observe       func(code string, severity Severity)
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// OnHandled registers a hook fired for every handled error, used for metrics.
func (h *Handler) OnHandled(fn func(code string, severity Severity)) {
	h.observe = fn
}

// Handle logs err and returns the catalog key to show the customer and whether
// the same step can succeed on the customer's next message.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	classified := unclassified
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		classified = *appErr
	}

	attrs := []slog.Attr{
		slog.String("code", classified.Code),
		slog.String("severity", string(classified.Severity)),
		slog.Bool("retryable", classified.Retryable),
		slog.String("error", err.Error()),
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	h.logger().LogAttrs(ctx, levelFor(classified.Severity), "turn failed", attrs...)

	if h.observe != nil {
		h.observe(classified.Code, classified.Severity)
	}

	if h.sentryEnabled && (classified.Severity == SeverityHigh || classified.Severity == SeverityCritical) {
		h.sendToSentry(err, classified)
	}

	if classified.UserMessage == "" {
		return MessageGeneric, classified.Retryable
	}
	return classified.UserMessage, classified.Retryable
}

func (h *Handler) logger() *slog.Logger {
	if h.log == nil {
		return slog.Default()
	}
	return h.log
}

// levelFor keeps re-prompts out of the error stream: field failures are part of a normal conversation.
func levelFor(severity Severity) slog.Level {
	switch severity {
	case SeverityLow:
		return slog.LevelInfo
	case SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func (h *Handler) sendToSentry(err error, classified AppError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", classified.Code)
		scope.SetTag("severity", string(classified.Severity))
		sentry.CaptureException(err)
	})
}
