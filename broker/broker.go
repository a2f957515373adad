// Package broker defines the pub/sub contract used to fan gateway events
// out to push-capable connections (SSE, WebSocket). A single-process
// deployment uses the memory implementation; multi-node deployments use
// the Redis implementation so every node sees every event.
package broker

import "context"

// Broker delivers published events to all active subscribers of a topic.
// Delivery is best-effort and live-only: subscribers receive events
// published after they subscribe, with per-subscriber ordering matching
// publish order.
type Broker interface {
	// Publish sends data to every current subscriber of topic.
	Publish(ctx context.Context, topic string, data []byte) error

	// Subscribe returns a stream of events for topic, starting with the
	// next published event.
	Subscribe(ctx context.Context, topic string) (Stream, error)

	// Close releases broker resources and terminates all streams.
	Close() error
}

// Stream provides ordered event consumption for one subscriber.
// Streams are safe for use by a single consumer goroutine.
type Stream interface {
	// Next blocks until the next event is available or the context is
	// cancelled. Returns io.EOF once the stream is closed.
	Next(ctx context.Context) ([]byte, error)

	// Close releases resources associated with this stream. After Close,
	// Next returns io.EOF.
	Close() error
}
