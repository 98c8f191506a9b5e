package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type rmqPublisher struct {
	conn     *amqp.Connection
	exchange string
	log      *slog.Logger
}

// NewAMQP dials url and declares a durable topic exchange.
func NewAMQP(url, exchange string, log *slog.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &rmqPublisher{conn: conn, exchange: exchange, log: log}, nil
}

// Publish sends msg on a fresh confirm-mode channel and waits for the broker ack.
func (r *rmqPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msgID := msg.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	cid := msgID
	if msg.Meta.CorrelationID != nil {
		cid = *msg.Meta.CorrelationID
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx, r.exchange, key, false, false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     msgID,
			CorrelationId: cid,
			Type:          msg.Meta.Type,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm %s: %w", key, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: broker nacked", key)
	}

	r.log.Info("event published", slog.String("key", key), slog.String("exchange", r.exchange), slog.String("id", msgID))
	return nil
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}

// FallbackPublisher logs and drops events when no broker is configured.
type FallbackPublisher struct {
	log *slog.Logger
}

func NewFallback(log *slog.Logger) Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &FallbackPublisher{log: log}
}

func (p *FallbackPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	p.log.DebugContext(ctx, "events disabled, skipped publish", slog.String("key", key), slog.String("id", msg.Meta.ID))
	return nil
}

func (p *FallbackPublisher) Close() error {
	return nil
}
