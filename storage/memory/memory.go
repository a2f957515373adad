// Package memory provides an in-memory implementation of the storage
// interface using github.com/hashicorp/golang-lru/v2 with TTL support.
// Suitable for single-process deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lanonasis/mcp-gateway/storage"
)

const cleanupInterval = 5 * time.Minute

var _ storage.Storage = (*Storage)(nil)

// Storage implements storage.Storage backed by an LRU cache.
type Storage struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *storage.Item]
	stop  chan struct{}
	once  sync.Once
}

// New creates an in-memory storage holding at most maxItems entries.
func New(maxItems int) (*Storage, error) {
	cache, err := lru.New[string, *storage.Item](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Storage{
		cache: cache,
		stop:  make(chan struct{}),
	}

	go s.cleanupExpired()

	return s, nil
}

// Get retrieves the item for key, treating expired entries as absent.
func (s *Storage) Get(ctx context.Context, key string) (*storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	if item.IsExpired() {
		s.cache.Remove(key)
		return nil, nil
	}
	return item, nil
}

// Set stores data under key, applying any TTL option.
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	options := storage.ApplyOptions(opts)

	now := time.Now()
	item := &storage.Item{
		Data:      append([]byte(nil), data...),
		CreatedAt: now,
	}
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
	}

	s.mu.Lock()
	s.cache.Add(key, item)
	s.mu.Unlock()

	return nil
}

// Delete removes key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.cache.Remove(key)
	s.mu.Unlock()
	return nil
}

// Consume retrieves and deletes the item for key under a single lock
// acquisition, so concurrent consumers of the same key see exactly one
// winner.
func (s *Storage) Consume(ctx context.Context, key string) (*storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	s.cache.Remove(key)
	if item.IsExpired() {
		return nil, nil
	}
	return item, nil
}

// Close stops the cleanup goroutine and drops all entries.
func (s *Storage) Close() error {
	s.once.Do(func() { close(s.stop) })
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()
	return nil
}

// cleanupExpired periodically evicts entries whose TTL has lapsed so the
// cache does not fill with dead keys between reads.
func (s *Storage) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		now := time.Now()
		for _, key := range s.cache.Keys() {
			if item, ok := s.cache.Peek(key); ok {
				if item.ExpiresAt != nil && now.After(*item.ExpiresAt) {
					s.cache.Remove(key)
				}
			}
		}
		s.mu.Unlock()
	}
}
