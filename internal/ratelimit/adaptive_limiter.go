package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_decisions_total",
		Help: "Rate limit decisions by backend and outcome.",
	}, []string{"backend", "outcome"})

	degraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_degraded",
		Help: "1 while the limiter runs on the in-memory fallback.",
	})
)

// AdaptiveLimiter asks Redis first. While Redis fails it switches to the
// in-memory limiter with half the limit, since each replica counts alone.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
	onMemory atomic.Bool
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

// Check returns ErrLimitExceeded together with the rejecting decision.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	d, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		if a.onMemory.CompareAndSwap(true, false) {
			degraded.Set(0)
			a.log.InfoContext(ctx, "rate limiter back on redis")
		}
		return a.verdict("redis", d)
	}

	if a.onMemory.CompareAndSwap(false, true) {
		degraded.Set(1)
		a.log.WarnContext(ctx, "rate limiter switched to memory", slog.Any("error", err))
	}

	d, err = a.fallback.Check(ctx, key, max(limit/2, 1), window)
	if err != nil {
		return nil, err
	}
	return a.verdict("memory", d)
}

func (a *AdaptiveLimiter) verdict(backend string, d *Decision) (*Decision, error) {
	if d.Allowed {
		decisionsTotal.WithLabelValues(backend, "allowed").Inc()
		return d, nil
	}
	decisionsTotal.WithLabelValues(backend, "rejected").Inc()
	return d, ErrLimitExceeded
}
