// Package gatewayws is the WebSocket adapter of the protocol gateway.
// Each accepted connection runs an independent read loop speaking the
// JSON-RPC envelope; requests on one connection are served and answered
// in receipt order, while connections proceed concurrently against the
// shared read-only dispatcher. Connections also join the broadcast hub
// and receive gateway push events as JSON frames.
package gatewayws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/internal/connhub"
	"github.com/lanonasis/mcp-gateway/internal/jsonrpc"
	"github.com/lanonasis/mcp-gateway/internal/logctx"
	"github.com/lanonasis/mcp-gateway/tools"
)

// Handler upgrades HTTP requests to WebSocket connections and serves the
// tool surface over them.
type Handler struct {
	dispatcher *tools.Dispatcher
	resolver   auth.Authenticator
	hub        *connhub.Hub
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

var _ http.Handler = (*Handler)(nil)

// Config assembles a Handler.
type Config struct {
	Dispatcher *tools.Dispatcher
	Resolver   auth.Authenticator
	Hub        *connhub.Hub
	// CheckOrigin overrides the upgrader's origin policy. Nil keeps
	// gorilla's same-origin default.
	CheckOrigin func(r *http.Request) bool
	Logger      *slog.Logger
}

// New builds the WebSocket adapter.
func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		dispatcher: cfg.Dispatcher,
		resolver:   cfg.Resolver,
		hub:        cfg.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		log: log,
	}
}

// ServeHTTP authenticates the caller from the upgrade request's headers,
// upgrades, and runs the connection loop until the peer disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Transport:  "websocket",
		RemoteAddr: r.RemoteAddr,
	})
	r = r.WithContext(ctx)

	p, err := h.resolver.Resolve(ctx, r.Header)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.WarnContext(ctx, "websocket upgrade failed", "err", err)
		return
	}

	conn := &wsConn{id: uuid.NewString(), ws: ws}
	h.hub.Add(conn)
	h.log.InfoContext(ctx, "websocket connection opened", "conn_id", conn.id, "subject", p.Subject)

	defer func() {
		h.hub.Remove(conn.id)
		_ = ws.Close()
		h.log.InfoContext(ctx, "websocket connection closed", "conn_id", conn.id)
	}()

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		req, parseErr := jsonrpc.ParseRequest(data)
		var resp *jsonrpc.Response
		if parseErr != nil {
			resp = jsonrpc.NewErrorResponse(nil, parseErr.Code, parseErr.Message, parseErr.Data)
		} else {
			resp = h.dispatcher.HandleRequest(r.Context(), p, req)
		}

		if err := conn.writeJSON(resp); err != nil {
			h.log.WarnContext(ctx, "websocket write failed", "conn_id", conn.id, "err", err)
			return
		}
	}
}

// wsConn serializes writes to one gorilla connection. Gorilla permits a
// single concurrent writer, and both the read loop and the broadcast hub
// write here.
type wsConn struct {
	id string
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) ID() string { return c.id }

// Send implements connhub.Conn; broadcast events arrive pre-encoded.
func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(data)
}
