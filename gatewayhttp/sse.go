package gatewayhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/internal/connhub"
)

var (
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

const keepaliveInterval = 30 * time.Second

// writeFlusher is the pair of interfaces an SSE response writer must
// satisfy.
type writeFlusher interface {
	http.ResponseWriter
	http.Flusher
}

// handleSSE serves the one-directional push channel. On connect it emits
// a "connected" event and a "tools" snapshot, then joins the broadcast
// set until the client goes away or a write fails.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request, p *auth.Principal) {
	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		writeJSON(w, http.StatusNotAcceptable, map[string]string{"error": "accept header must allow text/event-stream"})
		return
	}

	wf, ok := w.(writeFlusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	wf.Flush()

	conn := &sseConn{id: uuid.NewString(), wf: wf}

	// The connected and tools snapshot events precede hub membership so
	// the client never sees a broadcast before its own handshake.
	if err := conn.sendEvent("connected", map[string]any{"connection_id": conn.id, "subject": p.Subject}); err != nil {
		return
	}
	if err := conn.sendEvent("tools", h.dispatcher.ListTools(r.Context())); err != nil {
		return
	}

	h.hub.Add(conn)
	h.log.InfoContext(r.Context(), "sse connection opened", "conn_id", conn.id, "subject", p.Subject)
	defer func() {
		h.hub.Remove(conn.id)
		h.log.InfoContext(r.Context(), "sse connection closed", "conn_id", conn.id)
	}()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.sendEvent("ping", map[string]any{"ts": time.Now().Unix()}); err != nil {
				return
			}
		}
	}
}

// sseConn adapts one event-stream response to the hub's Conn interface.
// The mutex serializes the broadcast goroutine, the keepalive ticker, and
// the handshake writes.
type sseConn struct {
	id string
	mu sync.Mutex
	wf writeFlusher
}

func (c *sseConn) ID() string { return c.id }

// Send implements connhub.Conn for broker-delivered events. The raw
// payload is a connhub.Event; its Type becomes the SSE event name.
func (c *sseConn) Send(data []byte) error {
	var ev connhub.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	return c.sendEvent(ev.Type, ev.Data)
}

func (c *sseConn) sendEvent(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.wf, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}
	c.wf.Flush()
	return nil
}
