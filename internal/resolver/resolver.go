// Package resolver turns raw user input into a validated field value.
//
// Strategies run in order and the first one that produces a value wins. Every
// value, whatever strategy produced it, has passed the deterministic validator
// for its field before it is returned.
package resolver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/language"
	"github.com/Proton-105/bazaar-bot/internal/validate"
	"github.com/Proton-105/bazaar-bot/pkg/metrics"
)

const sourceNone = "none"

// Strategy is one stage of field resolution.
type Strategy interface {
	Name() string
	// Resolve returns the normalized value and true, or false when this stage has nothing.
	Resolve(ctx context.Context, raw string, kind validate.Kind, lang domain.Language) (string, bool)
}

// Resolver evaluates its strategies short-circuit.
type Resolver struct {
	strategies []Strategy
}

// New builds the default pipeline: the validator, then extraction through svc.
func New(svc language.Service, log *slog.Logger) *Resolver {
	return NewWithStrategies(ValidatorStrategy{}, NewExtractionStrategy(svc, log))
}

func NewWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the first value produced by a strategy.
func (r *Resolver) Resolve(ctx context.Context, raw string, kind validate.Kind, lang domain.Language) (string, bool) {
	for _, s := range r.strategies {
		if value, ok := s.Resolve(ctx, raw, kind, lang); ok {
			metrics.RecordFieldResolution(string(kind), s.Name())
			return value, true
		}
	}

	metrics.RecordFieldResolution(string(kind), sourceNone)
	return "", false
}

// ValidatorStrategy applies the deterministic validator to the raw input.
type ValidatorStrategy struct{}

func (ValidatorStrategy) Name() string { return "validator" }

func (ValidatorStrategy) Resolve(_ context.Context, raw string, kind validate.Kind, _ domain.Language) (string, bool) {
	return validate.Field(kind, raw)
}

// ExtractionStrategy asks the language service for a candidate and re-validates it.
type ExtractionStrategy struct {
	svc language.Service
	log *slog.Logger
}

func NewExtractionStrategy(svc language.Service, log *slog.Logger) *ExtractionStrategy {
	if log == nil {
		log = slog.Default()
	}
	return &ExtractionStrategy{svc: svc, log: log}
}

func (s *ExtractionStrategy) Name() string { return "extraction" }

func (s *ExtractionStrategy) Resolve(ctx context.Context, raw string, kind validate.Kind, lang domain.Language) (string, bool) {
	if s.svc == nil {
		return "", false
	}

	candidate, err := s.svc.ExtractField(ctx, raw, kind, lang)
	if err != nil {
		if !errors.Is(err, language.ErrNoValue) {
			s.log.WarnContext(ctx, "field extraction failed",
				slog.String("kind", string(kind)),
				slog.Any("error", apperrors.NewExtractionError(string(kind), err)),
			)
		}
		return "", false
	}

	value, ok := validate.Field(kind, candidate)
	if !ok {
		s.log.DebugContext(ctx, "extracted value rejected by validator", slog.String("kind", string(kind)))
	}
	return value, ok
}
