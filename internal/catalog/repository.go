package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

// ErrProductNotFound is returned when no product has the requested SKU.
var ErrProductNotFound = errors.New("product not found")

// Repository reads products from storage.
type Repository interface {
	// ListAvailable returns active, in-stock products in catalog order.
	ListAvailable(ctx context.Context) ([]domain.Product, error)
	// GetBySKU returns the product regardless of availability.
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
}

type productRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository creates a SQL-backed product repository.
func NewRepository(db *sql.DB, log *slog.Logger) Repository {
	if log == nil {
		log = slog.Default()
	}

	return &productRepository{
		db:  db,
		log: log,
	}
}

const productColumns = `sku, name, name_ur, description, description_ur, price, currency, image_url,
		active, stock, category, category_ur, created_at`

// ListAvailable returns newest products first; sku breaks ties so the order is stable.
func (r *productRepository) ListAvailable(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE active = TRUE AND stock > 0
		ORDER BY created_at DESC, sku ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("failed to list available products", slog.Any("error", err))
		return nil, fmt.Errorf("select available products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// GetBySKU retrieves one product by SKU.
func (r *productRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE sku = $1
	`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		r.log.Error("failed to fetch product by sku", slog.String("sku", sku), slog.Any("error", err))
		return nil, fmt.Errorf("select product by sku: %w", err)
	}

	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.SKU,
		&p.Name,
		&p.NameUR,
		&p.Description,
		&p.DescriptionUR,
		&p.Price,
		&p.Currency,
		&p.ImageURL,
		&p.Active,
		&p.Stock,
		&p.Category,
		&p.CategoryUR,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &p, nil
}
