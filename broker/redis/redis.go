// Package redis provides a Redis Pub/Sub implementation of broker.Broker
// so gateway events reach subscribers on every node of a multi-node
// deployment.
package redis

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/lanonasis/mcp-gateway/broker"
)

// Config contains configuration options for the Redis broker.
type Config struct {
	// Client is the Redis client to use.
	Client redis.UniversalClient

	// ChannelPrefix is prepended to all Redis Pub/Sub channels.
	// Defaults to "gateway:events:" if empty.
	ChannelPrefix string
}

var _ broker.Broker = (*Broker)(nil)

// Broker implements broker.Broker over Redis Pub/Sub channels.
type Broker struct {
	client redis.UniversalClient
	prefix string
}

// New creates a Redis-backed broker instance.
func New(config Config) (*Broker, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	prefix := config.ChannelPrefix
	if prefix == "" {
		prefix = "gateway:events:"
	}
	return &Broker{
		client: config.Client,
		prefix: prefix,
	}, nil
}

// Publish sends data on the topic's Pub/Sub channel.
func (b *Broker) Publish(ctx context.Context, topic string, data []byte) error {
	if err := b.client.Publish(ctx, b.prefix+topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a Pub/Sub subscription for topic. The returned stream
// delivers payloads in channel order.
func (b *Broker) Subscribe(ctx context.Context, topic string) (broker.Stream, error) {
	pubsub := b.client.Subscribe(ctx, b.prefix+topic)

	// Force the SUBSCRIBE round trip so failures surface here rather than
	// on the first Next call.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	return &stream{pubsub: pubsub, ch: pubsub.Channel()}, nil
}

// Close closes the underlying Redis client.
func (b *Broker) Close() error {
	return b.client.Close()
}

type stream struct {
	pubsub *redis.PubSub
	ch     <-chan *redis.Message
}

func (s *stream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return []byte(msg.Payload), nil
	}
}

func (s *stream) Close() error {
	return s.pubsub.Close()
}
