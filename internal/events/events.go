// Package events publishes back-office notifications about orders and agent requests.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

// Event types, also used as routing keys.
const (
	TypeOrderCreated   = "orders.created.v1"
	TypeAgentRequested = "agent.requested.v1"

	producer = "bazaar-bot"
)

// Meta describes an emitted event.
type Meta struct {
	CorrelationID *string   `json:"correlation_id,omitempty"`
	ID            string    `json:"id"`
	Producer      *string   `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

// Envelope wraps an event payload with its metadata.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Publisher sends envelopes to the back office.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// NewEnvelope stamps data with a fresh id and the current time.
func NewEnvelope(eventType, correlationID string, data any) Envelope {
	p := producer
	meta := Meta{
		ID:       uuid.NewString(),
		Producer: &p,
		Time:     time.Now().UTC(),
		Type:     eventType,
	}
	if correlationID != "" {
		meta.CorrelationID = &correlationID
	}

	return Envelope{Meta: meta, Data: data}
}

// OrderCreated is the payload of TypeOrderCreated.
type OrderCreated struct {
	OrderID       string               `json:"order_id"`
	Identity      string               `json:"identity"`
	ProductSKU    string               `json:"product_sku"`
	ProductName   string               `json:"product_name"`
	Qty           int                  `json:"qty"`
	Total         int64                `json:"total"`
	Currency      string               `json:"currency,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Status        domain.OrderStatus   `json:"status"`
	ProofKind     domain.ProofKind     `json:"proof_kind,omitempty"`
	CustomerName  string               `json:"customer_name"`
	CustomerPhone string               `json:"customer_phone"`
	CreatedAt     time.Time            `json:"created_at"`
}

// NewOrderCreated builds the payload for o.
func NewOrderCreated(o *domain.Order) OrderCreated {
	payload := OrderCreated{
		OrderID:       o.ID,
		Identity:      o.Identity,
		ProductSKU:    o.ProductSKU,
		ProductName:   o.ProductName,
		Qty:           o.Qty,
		Total:         o.Total,
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CustomerName:  o.Customer.Name,
		CustomerPhone: o.Customer.Phone,
		CreatedAt:     o.CreatedAt,
	}
	if o.Proof != nil {
		payload.ProofKind = o.Proof.Kind
	}
	return payload
}

// AgentRequested is the payload of TypeAgentRequested.
type AgentRequested struct {
	Identity    string    `json:"identity"`
	Phone       string    `json:"phone"`
	ProductSKU  string    `json:"product_sku,omitempty"`
	Language    string    `json:"language,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
