package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

const availableKey = "catalog:available"

// Cache keeps the available product list in Redis.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a catalog cache backed by the provided Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns the cached list, or nil without error on a miss.
func (c *Cache) Get(ctx context.Context) ([]domain.Product, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, availableKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached catalog: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode cached catalog: %w", err)
	}

	return products, nil
}

// Set stores the list for the provided TTL.
func (c *Cache) Set(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	payload, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode catalog for cache: %w", err)
	}

	if err := c.client.Set(ctx, availableKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached catalog: %w", err)
	}

	return nil
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, availableKey).Err(); err != nil {
		return fmt.Errorf("delete cached catalog: %w", err)
	}

	return nil
}
