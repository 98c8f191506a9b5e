package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(TypeAgentRequested, "corr-1", AgentRequested{Identity: "923001234567", Phone: "+923001234567"})

	assert.NotEmpty(t, env.Meta.ID)
	assert.Equal(t, TypeAgentRequested, env.Meta.Type)
	require.NotNil(t, env.Meta.CorrelationID)
	assert.Equal(t, "corr-1", *env.Meta.CorrelationID)
	require.NotNil(t, env.Meta.Producer)
	assert.WithinDuration(t, time.Now(), env.Meta.Time, time.Minute)

	other := NewEnvelope(TypeAgentRequested, "", nil)
	assert.Nil(t, other.Meta.CorrelationID)
	assert.NotEqual(t, env.Meta.ID, other.Meta.ID)
}

func TestNewOrderCreated_WireShape(t *testing.T) {
	order := &domain.Order{
		ID:            "ORD-1",
		Identity:      "923001234567",
		ProductSKU:    "SKU-1",
		ProductName:   "Kurta",
		ProductPrice:  2500,
		Currency:      "PKR",
		Qty:           2,
		Total:         5000,
		Customer:      domain.Customer{Name: "Ali", Phone: "+923001234567", Address: "Lahore"},
		PaymentMethod: domain.PaymentEasyPaisa,
		Status:        domain.StatusPendingReview,
		Proof:         &domain.PaymentProof{Kind: domain.ProofText, Text: "TX123"},
	}

	data, err := json.Marshal(NewEnvelope(TypeOrderCreated, "", NewOrderCreated(order)))
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, TypeOrderCreated, decoded["meta"]["type"])
	assert.Equal(t, "ORD-1", decoded["data"]["order_id"])
	assert.Equal(t, float64(5000), decoded["data"]["total"])
	assert.Equal(t, "easypaisa", decoded["data"]["payment_method"])
	assert.Equal(t, "pending_review", decoded["data"]["status"])
	assert.Equal(t, "text", decoded["data"]["proof_kind"])
}

func TestFallbackPublisher(t *testing.T) {
	p := NewFallback(slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, p.Publish(context.Background(), TypeOrderCreated, NewEnvelope(TypeOrderCreated, "", nil)))
	assert.NoError(t, p.Close())
}
