// Package connhub tracks the set of push-capable connections (SSE,
// WebSocket) and fans broadcast events out to them. Connections join on
// connect and leave on disconnect or on the first failed write; a dead
// connection is never referenced again after removal.
package connhub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/lanonasis/mcp-gateway/broker"
)

// Topic is the broker topic carrying gateway push events.
const Topic = "gateway"

// Event is the envelope pushed to subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Encode renders the event for the broker.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Conn is one push-capable connection. Send must be safe for concurrent
// use and must return an error once the peer is gone.
type Conn interface {
	ID() string
	Send(data []byte) error
}

// Hub is the broadcast set. Mutation (connect/disconnect) and iteration
// (broadcast) are safe to interleave from independent goroutines.
type Hub struct {
	mu    sync.Mutex
	conns map[string]Conn
	log   *slog.Logger
}

// New creates an empty hub.
func New(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns: make(map[string]Conn),
		log:   log,
	}
}

// Add registers a connection.
func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()
}

// Remove deregisters a connection. It reports whether the connection was
// still a member, so double-removal (disconnect racing a failed write) is
// harmless.
func (h *Hub) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[id]; !ok {
		return false
	}
	delete(h.conns, id)
	return true
}

// Len returns the current number of connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast delivers data to every connection. Writes happen outside the
// lock against a snapshot, so a connect or disconnect during the sweep
// cannot corrupt the set. A connection whose write fails is removed and
// the sweep continues; the return value counts successful deliveries.
func (h *Hub) Broadcast(data []byte) int {
	h.mu.Lock()
	snapshot := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	delivered := 0
	for _, c := range snapshot {
		if err := c.Send(data); err != nil {
			if h.Remove(c.ID()) {
				h.log.Info("connection evicted after failed write", "conn_id", c.ID(), "err", err)
			}
			continue
		}
		delivered++
	}
	return delivered
}

// Run subscribes to the gateway event topic and broadcasts every event
// until the context ends or the broker closes.
func (h *Hub) Run(ctx context.Context, b broker.Broker) error {
	stream, err := b.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		data, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		h.Broadcast(data)
	}
}

// Publish encodes an event onto the broker; the hub (on every node)
// relays it to connected clients.
func Publish(ctx context.Context, b broker.Broker, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	return b.Publish(ctx, Topic, data)
}
