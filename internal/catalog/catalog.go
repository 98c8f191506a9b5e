// Package catalog gives the conversation read access to products.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

// ErrNoProducts is returned when nothing is active and in stock.
var ErrNoProducts = errors.New("no products available")

// Catalog serves browsing from a cached product list and order snapshots from storage.
type Catalog struct {
	repo  Repository
	cache *Cache
	ttl   time.Duration
	log   *slog.Logger
}

func New(repo Repository, cache *Cache, ttl time.Duration, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{repo: repo, cache: cache, ttl: ttl, log: log}
}

// Available returns active, in-stock products in catalog order.
func (c *Catalog) Available(ctx context.Context) ([]domain.Product, error) {
	if c.ttl > 0 {
		cached, err := c.cache.Get(ctx)
		if err != nil {
			c.log.WarnContext(ctx, "catalog cache read failed", slog.Any("error", err))
		} else if cached != nil {
			return cached, nil
		}
	}

	products, err := c.repo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		if err := c.cache.Set(ctx, products, c.ttl); err != nil {
			c.log.WarnContext(ctx, "catalog cache write failed", slog.Any("error", err))
		}
	}

	return products, nil
}

// Current returns the product with sku when it is still available, otherwise the first product.
func (c *Catalog) Current(ctx context.Context, sku string) (*domain.Product, error) {
	products, err := c.Available(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}

	if i := indexOf(products, sku); i >= 0 {
		return &products[i], nil
	}
	return &products[0], nil
}

// Next returns the product after sku, wrapping to the first after the last.
// An unknown or empty sku yields the first product.
func (c *Catalog) Next(ctx context.Context, sku string) (*domain.Product, error) {
	products, err := c.Available(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}

	next := (indexOf(products, sku) + 1) % len(products)
	return &products[next], nil
}

// Product reads sku straight from storage so orders snapshot the current price.
// A product that is gone or no longer available means the cached list is stale, so it is dropped.
func (c *Catalog) Product(ctx context.Context, sku string) (*domain.Product, error) {
	p, err := c.repo.GetBySKU(ctx, sku)
	switch {
	case errors.Is(err, ErrProductNotFound):
		c.invalidate(ctx, sku)
	case err == nil && !p.Available():
		c.invalidate(ctx, sku)
	}
	return p, err
}

func (c *Catalog) invalidate(ctx context.Context, sku string) {
	if c.ttl <= 0 {
		return
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		c.log.WarnContext(ctx, "catalog cache invalidation failed", slog.String("sku", sku), slog.Any("error", err))
		return
	}
	c.log.InfoContext(ctx, "catalog cache dropped after stale product", slog.String("sku", sku))
}

func indexOf(products []domain.Product, sku string) int {
	if sku == "" {
		return -1
	}
	for i := range products {
		if products[i].SKU == sku {
			return i
		}
	}
	return -1
}
