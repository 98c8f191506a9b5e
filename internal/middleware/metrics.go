package middleware

import (
	"context"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	"github.com/Proton-105/bazaar-bot/pkg/metrics"
)

// Metrics measures execution time and status for each turn, labelled by the
// state the conversation ended in.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(ctx context.Context, t *handlers.Turn) error {
		start := time.Now()
		err := next(ctx, t)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordEvent(string(t.State()), string(t.Event.Modality), status, time.Since(start))

		return err
	}
}
