package orders

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
}

type orderRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository creates a SQL-backed order repository.
func NewRepository(db *sql.DB, log *slog.Logger) Repository {
	if log == nil {
		log = slog.Default()
	}

	return &orderRepository{
		db:  db,
		log: log,
	}
}

// Create inserts the order with its customer and proof snapshot.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
		INSERT INTO orders (
			order_id, identity, product_sku, product_name, product_price, currency, qty, total,
			customer_name, customer_phone, customer_address, payment_method, status,
			proof_kind, proof_text, proof_media_ref, proof_stored_path, proof_received_at,
			notes, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	var (
		proofKind, proofText, proofMediaRef, proofStoredPath sql.NullString
		proofReceivedAt                                      sql.NullTime
	)
	if p := order.Proof; p != nil {
		proofKind = nullString(string(p.Kind))
		proofText = nullString(p.Text)
		proofMediaRef = nullString(p.MediaRef)
		proofStoredPath = nullString(p.StoredPath)
		proofReceivedAt = sql.NullTime{Time: p.ReceivedAt, Valid: !p.ReceivedAt.IsZero()}
	}

	if _, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.Identity,
		order.ProductSKU,
		order.ProductName,
		order.ProductPrice,
		order.Currency,
		order.Qty,
		order.Total,
		order.Customer.Name,
		order.Customer.Phone,
		order.Customer.Address,
		string(order.PaymentMethod),
		string(order.Status),
		proofKind,
		proofText,
		proofMediaRef,
		proofStoredPath,
		proofReceivedAt,
		order.Notes,
		createdAt(order.CreatedAt),
	); err != nil {
		r.log.Error("failed to create order", slog.String("order_id", order.ID), slog.Any("error", err))
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
