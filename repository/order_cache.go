package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/order-ingestion-service/models"
)

// OrderCache caches orders by order number.
type OrderCache interface {
	Get(ctx context.Context, orderNumber uuid.UUID) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Invalidate(ctx context.Context, orderNumber uuid.UUID) error
}

// ErrCacheMiss is returned by Get when the order is not cached.
var ErrCacheMiss = errors.New("order not cached")

// RedisOrderCache implements OrderCache with Redis string keys holding JSON.
type RedisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisOrderCache creates a new RedisOrderCache.
func NewRedisOrderCache(client *redis.Client, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{client: client, ttl: ttl}
}

// OrderCacheKey returns the Redis key for an order.
func OrderCacheKey(orderNumber uuid.UUID) string {
	return fmt.Sprintf("order:%s", orderNumber.String())
}

func (c *RedisOrderCache) Get(ctx context.Context, orderNumber uuid.UUID) (*models.Order, error) {
	data, err := c.client.Get(ctx, OrderCacheKey(orderNumber)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode cached order: %w", err)
	}
	return &order, nil
}

func (c *RedisOrderCache) Set(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if err := c.client.Set(ctx, OrderCacheKey(order.OrderNumber), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisOrderCache) Invalidate(ctx context.Context, orderNumber uuid.UUID) error {
	if err := c.client.Del(ctx, OrderCacheKey(orderNumber)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
