package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/Proton-105/bazaar-bot/internal/health"
)

// ErrDraining is reported by Readiness once shutdown has begun.
var ErrDraining = errors.New("shutting down")

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes answers liveness from the process and readiness from its dependencies.
type Probes struct {
	log      *slog.Logger
	checker  *health.Checker
	draining atomic.Bool
}

// NewProbes creates a new Probes instance. A nil checker makes readiness depend only on draining.
func NewProbes(log *slog.Logger, checker *health.Checker) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, checker: checker}
}

// Liveness reports success while the process can serve requests at all.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails while draining or when any dependency check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return ErrDraining
	}
	if p.checker == nil {
		return nil
	}

	report := p.checker.Check(ctx)
	if !report.Healthy() {
		p.log.Warn("readiness probe failed", slog.Any("components", report.Components))
		return errors.New("dependencies unavailable")
	}
	return nil
}

// Drain marks the process as shutting down.
func (p *Probes) Drain() {
	p.draining.Store(true)
}
