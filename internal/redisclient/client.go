package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks that Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(itemID string) string {
	return "stock:" + itemID
}

func idempotencyKey(key string) string {
	return "idempotency:sale:" + key
}

func lockKey(key string) string {
	return "lock:" + key
}

// SetStock mirrors the quantity on hand for an item
func (c *Client) SetStock(ctx context.Context, itemID string, quantity int) error {
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, stockKey(itemID), "quantity", quantity)
	pipe.HSet(ctx, stockKey(itemID), "updated_at", time.Now().Unix())

	_, err := pipe.Exec(ctx)
	return err
}

// RememberSale stores the sale reference produced for an idempotency key
func (c *Client) RememberSale(ctx context.Context, key, saleRef string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), saleRef, ttl).Err()
}

// LookupSale returns the sale reference previously stored for an idempotency key
func (c *Client) LookupSale(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, lockKey(key), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, lockKey(key)).Err()
}
