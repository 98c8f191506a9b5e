package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	"github.com/Proton-105/bazaar-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-identity rate limits for inbound events.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
	}
}

// Handle drops events from identities over their limit. Limiter failures let the event through.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(ctx context.Context, t *handlers.Turn) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(ctx, t)
		}

		identity := t.Event.Identity
		if m.rules.IsWhitelisted(identity) {
			return next(ctx, t)
		}

		limit, window := m.rules.PerIdentity()
		decision, err := m.limiter.Check(ctx, "identity:"+identity, limit, window)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded) || (err == nil && decision != nil && !decision.Allowed):
			var retryAfter time.Duration
			if decision != nil {
				retryAfter = decision.RetryAfter
			}
			m.log.WarnContext(ctx, "rate limit exceeded, event dropped",
				slog.String("identity", identity),
				slog.String("modality", string(t.Event.Modality)),
				slog.Duration("retry_after", retryAfter),
			)
			return nil
		case err != nil:
			m.log.WarnContext(ctx, "rate limiter error", slog.String("identity", identity), slog.Any("error", err))
		}

		return next(ctx, t)
	}
}
