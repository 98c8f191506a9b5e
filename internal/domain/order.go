package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Proton-105/bazaar-bot/internal/validate"
)

// PaymentMethod identifies how the shopper pays.
type PaymentMethod string

const (
	PaymentEasyPaisa      PaymentMethod = "easypaisa"
	PaymentCashOnDelivery PaymentMethod = "cod"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentEasyPaisa || m == PaymentCashOnDelivery
}

// OrderStatus is the review state of an order. Only the pending statuses are set
// by the bot; confirmed and cancelled are applied by back-office tooling.
type OrderStatus string

const (
	StatusPendingReview       OrderStatus = "pending_review"
	StatusPendingConfirmation OrderStatus = "pending_confirmation"
	StatusConfirmed           OrderStatus = "confirmed"
	StatusCancelled           OrderStatus = "cancelled"
)

// StatusFor returns the initial status implied by a payment method.
func StatusFor(m PaymentMethod) OrderStatus {
	if m == PaymentEasyPaisa {
		return StatusPendingReview
	}
	return StatusPendingConfirmation
}

// ProofKind describes the payload of a payment proof.
type ProofKind string

const (
	ProofText  ProofKind = "text"
	ProofImage ProofKind = "image"
)

// PaymentProof is the evidence submitted on the proof-bearing payment path.
type PaymentProof struct {
	Kind       ProofKind `json:"kind"`
	Text       string    `json:"text,omitempty"`
	MediaRef   string    `json:"media_ref,omitempty"`
	StoredPath string    `json:"stored_path,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Customer is the delivery snapshot captured on an order.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Order is an immutable record of a completed flow.
type Order struct {
	ID            string        `json:"order_id"`
	Identity      string        `json:"identity"`
	ProductSKU    string        `json:"product_sku"`
	ProductName   string        `json:"product_name"`
	ProductPrice  int64         `json:"product_price"`
	Currency      string        `json:"currency"`
	Qty           int           `json:"qty"`
	Total         int64         `json:"total"`
	Customer      Customer      `json:"customer"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	Proof         *PaymentProof `json:"payment_proof,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ErrInvalidOrder wraps every rejection from NewOrder.
var ErrInvalidOrder = errors.New("invalid order")

// OrderDraft carries everything needed to build an Order.
type OrderDraft struct {
	Identity      string
	Product       Product
	Qty           int
	Customer      Customer
	PaymentMethod PaymentMethod
	Proof         *PaymentProof
}

// NewOrder snapshots the product price and customer details into a new Order.
// The customer phone must already be in canonical international form.
func NewOrder(d OrderDraft, now time.Time) (*Order, error) {
	if d.Identity == "" {
		return nil, fmt.Errorf("%w: identity is empty", ErrInvalidOrder)
	}
	if d.Product.SKU == "" {
		return nil, fmt.Errorf("%w: product is empty", ErrInvalidOrder)
	}
	if d.Qty < validate.MinQuantity || d.Qty > validate.MaxQuantity {
		return nil, fmt.Errorf("%w: quantity %d out of range", ErrInvalidOrder, d.Qty)
	}
	if canonical, ok := validate.Phone(d.Customer.Phone); !ok || canonical != d.Customer.Phone {
		return nil, fmt.Errorf("%w: phone is not validated", ErrInvalidOrder)
	}
	if strings.TrimSpace(d.Customer.Name) == "" || strings.TrimSpace(d.Customer.Address) == "" {
		return nil, fmt.Errorf("%w: customer snapshot incomplete", ErrInvalidOrder)
	}
	if !d.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: payment method %q", ErrInvalidOrder, d.PaymentMethod)
	}
	if d.PaymentMethod == PaymentEasyPaisa && d.Proof == nil {
		return nil, fmt.Errorf("%w: easypaisa order without payment proof", ErrInvalidOrder)
	}

	return &Order{
		ID:            NewOrderID(now),
		Identity:      d.Identity,
		ProductSKU:    d.Product.SKU,
		ProductName:   d.Product.Name,
		ProductPrice:  d.Product.Price,
		Currency:      d.Product.Currency,
		Qty:           d.Qty,
		Total:         d.Product.Price * int64(d.Qty),
		Customer:      d.Customer,
		PaymentMethod: d.PaymentMethod,
		Status:        StatusFor(d.PaymentMethod),
		Proof:         d.Proof,
		CreatedAt:     now.UTC(),
	}, nil
}

// NewOrderID returns ORD-<base36 millis>-<12 random hex>, upper-cased.
func NewOrderID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	return strings.ToUpper("ORD-" + ts + "-" + random)
}
