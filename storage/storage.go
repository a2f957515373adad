// Package storage provides a TTL-bound key/value contract used for
// ephemeral gateway state such as pending authorization codes. Expiry is
// the backing store's responsibility; callers never poll.
package storage

import (
	"context"
	"time"
)

// Storage is the primary key/value contract.
type Storage interface {
	// Get retrieves the item for key. Returns a nil Item if the key does
	// not exist or has expired. Errors are reserved for genuine backend
	// failures.
	Get(ctx context.Context, key string) (*Item, error)

	// Set stores data under key. A TTL may be supplied via WithTTL.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Consume atomically retrieves and deletes the item for key. When
	// multiple callers race on the same key, exactly one observes the
	// item; the rest observe nil. Returns nil for absent or expired keys.
	Consume(ctx context.Context, key string) (*Item, error)

	// Close releases backend resources.
	Close() error
}

// Item is a stored piece of data with metadata.
type Item struct {
	Data      []byte
	CreatedAt time.Time
	ExpiresAt *time.Time // nil = no expiration
}

// IsExpired reports whether the item has passed its expiry.
func (it *Item) IsExpired() bool {
	return it.ExpiresAt != nil && time.Now().After(*it.ExpiresAt)
}

// Option configures storage operations.
type Option func(*Options)

// Options contains configuration for storage operations.
type Options struct {
	TTL *time.Duration
}

// WithTTL sets a time-to-live for the stored data.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}

// ApplyOptions folds a slice of options into an Options value.
func ApplyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
