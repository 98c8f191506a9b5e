// Package orders persists completed orders and notifies the back office.
package orders

import (
	"context"
	"log/slog"

	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/events"
	"github.com/Proton-105/bazaar-bot/pkg/logger"
	"github.com/Proton-105/bazaar-bot/pkg/metrics"
)

// Service stores orders and publishes their creation.
type Service struct {
	repo      Repository
	publisher events.Publisher
	log       *slog.Logger
}

func NewService(repo Repository, publisher events.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewFallback(log)
	}
	return &Service{repo: repo, publisher: publisher, log: log}
}

// Place persists order. The creation event is published afterwards and a publish
// failure never fails the call.
func (s *Service) Place(ctx context.Context, order *domain.Order) error {
	if err := s.repo.Create(ctx, order); err != nil {
		return apperrors.NewDatabaseError(err)
	}

	metrics.RecordOrderCreated(string(order.PaymentMethod))
	s.log.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("sku", order.ProductSKU),
		slog.Int("qty", order.Qty),
		slog.Int64("total", order.Total),
		slog.String("payment_method", string(order.PaymentMethod)),
	)

	env := events.NewEnvelope(events.TypeOrderCreated, logger.CorrelationIDFromContext(ctx), events.NewOrderCreated(order))
	if err := s.publisher.Publish(ctx, events.TypeOrderCreated, env); err != nil {
		s.log.WarnContext(ctx, "failed to publish order event", slog.String("order_id", order.ID), slog.Any("error", err))
	}

	return nil
}

// RequestAgent announces that identity asked to be called back on phone.
func (s *Service) RequestAgent(ctx context.Context, req events.AgentRequested) {
	env := events.NewEnvelope(events.TypeAgentRequested, logger.CorrelationIDFromContext(ctx), req)
	if err := s.publisher.Publish(ctx, events.TypeAgentRequested, env); err != nil {
		s.log.WarnContext(ctx, "failed to publish agent request", slog.String("identity", req.Identity), slog.Any("error", err))
	}
}
