// Package redis provides a Redis-backed implementation of the storage
// interface. TTL enforcement is delegated to Redis key expiry, and Consume
// relies on GETDEL for its single-winner guarantee.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lanonasis/mcp-gateway/storage"
)

// Config contains configuration options for the Redis storage.
type Config struct {
	// Client is the Redis client instance.
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys.
	// Default: "gateway:storage:"
	KeyPrefix string
}

var _ storage.Storage = (*Storage)(nil)

// Storage implements storage.Storage using Redis.
type Storage struct {
	client    *redis.Client
	keyPrefix string
}

// storedItem is the structure serialized into Redis.
type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a Redis-backed storage instance.
func New(config Config) (*Storage, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "gateway:storage:"
	}

	return &Storage{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Get retrieves the item for key. Redis expiry makes lapsed keys absent.
func (s *Storage) Get(ctx context.Context, key string) (*storage.Item, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return s.decode(val)
}

// Set stores data under key, mapping the TTL option onto Redis key expiry.
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	options := storage.ApplyOptions(opts)

	now := time.Now()
	item := storedItem{
		Data:      data,
		CreatedAt: now,
	}

	var expiration time.Duration
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
		expiration = *options.TTL
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if err := s.client.Set(ctx, s.keyPrefix+key, payload, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Consume retrieves and deletes the item for key in one round trip.
// GETDEL is atomic on the Redis side, so concurrent consumers of the same
// key see exactly one winner.
func (s *Storage) Consume(ctx context.Context, key string) (*storage.Item, error) {
	val, err := s.client.GetDel(ctx, s.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume key %s: %w", key, err)
	}
	return s.decode(val)
}

// Close closes the underlying Redis client.
func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) decode(val string) (*storage.Item, error) {
	var item storedItem
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored data: %w", err)
	}

	out := &storage.Item{
		Data:      item.Data,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}
	// Redis expiry lags the stored timestamp by up to the write round trip.
	if out.IsExpired() {
		return nil, nil
	}
	return out, nil
}
