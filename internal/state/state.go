// Package state holds the per-identity conversation, the transition table that
// governs it, and its Redis persistence.
package state

import (
	"time"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

// State is a step of the ordering conversation.
type State string

const (
	StateLanguageSelection   State = "LANGUAGE_SELECTION"
	StateShowingProduct      State = "SHOWING_PRODUCT"
	StateAskingQuantity      State = "ASKING_QUANTITY"
	StateAskingName          State = "ASKING_NAME"
	StateAskingPhone         State = "ASKING_PHONE"
	StateAskingAddress       State = "ASKING_ADDRESS"
	StateAskingPaymentMethod State = "ASKING_PAYMENT_METHOD"
	StateWaitingPaymentProof State = "WAITING_PAYMENT_PROOF"
	StateWaitingForAgent     State = "WAITING_FOR_AGENT"
)

// All lists every state in canonical flow order.
var All = []State{
	StateLanguageSelection,
	StateShowingProduct,
	StateAskingQuantity,
	StateAskingName,
	StateAskingPhone,
	StateAskingAddress,
	StateAskingPaymentMethod,
	StateWaitingPaymentProof,
	StateWaitingForAgent,
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	_, ok := stages[s]
	return ok
}

// Context accumulates the order fields collected across turns.
type Context struct {
	ProductSKU    string               `json:"product_sku,omitempty"`
	Qty           int                  `json:"qty,omitempty"`
	Name          string               `json:"name,omitempty"`
	Phone         string               `json:"phone,omitempty"`
	Address       string               `json:"address,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method,omitempty"`
}

// Conversation is the persisted state of one identity.
type Conversation struct {
	Identity     string          `json:"identity"`
	Language     domain.Language `json:"language"`
	State        State           `json:"state"`
	Context      Context         `json:"context"`
	LastActivity time.Time       `json:"last_activity"`
	Version      int64           `json:"version"`
}

// NewConversation returns a fresh conversation waiting for a language choice.
func NewConversation(identity string, now time.Time) *Conversation {
	return &Conversation{
		Identity:     identity,
		State:        StateLanguageSelection,
		LastActivity: now,
	}
}

// Clone returns a copy safe to mutate.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
