// Package memory provides an in-process implementation of broker.Broker
// using Go channels. State is local, so it is suitable for single-node
// deployments and tests only.
package memory

import (
	"context"
	"io"
	"sync"

	"github.com/lanonasis/mcp-gateway/broker"
)

const subscriberBuffer = 16

var _ broker.Broker = (*Broker)(nil)

// Broker implements broker.Broker with per-topic subscriber sets.
type Broker struct {
	mu     sync.Mutex
	topics map[string]map[*stream]struct{}
	closed bool
}

// New creates an in-process broker.
func New() *Broker {
	return &Broker{
		topics: make(map[string]map[*stream]struct{}),
	}
}

// Publish sends data to every current subscriber of topic. A subscriber
// whose buffer is full is skipped rather than blocking the publisher.
func (b *Broker) Publish(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload := append([]byte(nil), data...)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return io.ErrClosedPipe
	}
	for sub := range b.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
			// Slow consumer; drop rather than stall every other subscriber.
		}
	}
	return nil
}

// Subscribe registers a new stream on topic.
func (b *Broker) Subscribe(ctx context.Context, topic string) (broker.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &stream{
		b:     b,
		topic: topic,
		ch:    make(chan []byte, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, io.ErrClosedPipe
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*stream]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}

	return sub, nil
}

// Close terminates all streams and rejects further use.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.topics {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.topics, topic)
	}
	return nil
}

// remove detaches sub and closes its channel. The channel close happens
// under the broker lock, after removal, so Publish can never send to a
// closed channel.
func (b *Broker) remove(sub *stream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	subs, ok := b.topics[sub.topic]
	if !ok {
		return
	}
	if _, member := subs[sub]; !member {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, sub.topic)
	}
	close(sub.ch)
}

type stream struct {
	b     *Broker
	topic string
	ch    chan []byte
	once  sync.Once
}

func (s *stream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (s *stream) Close() error {
	s.once.Do(func() { s.b.remove(s) })
	return nil
}
