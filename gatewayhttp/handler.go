// Package gatewayhttp is the HTTP adapter of the protocol gateway. It
// serves the stateless tool surface (POST /tools/{name} and the generic
// POST /mcp/message envelope), the SSE push channel, the health probe,
// and mounts the OAuth endpoints. All tool traffic routes through the
// shared dispatcher after the auth resolver has produced a principal.
package gatewayhttp

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/broker"
	"github.com/lanonasis/mcp-gateway/internal/connhub"
	"github.com/lanonasis/mcp-gateway/internal/jsonrpc"
	"github.com/lanonasis/mcp-gateway/internal/logctx"
	"github.com/lanonasis/mcp-gateway/mcp"
	"github.com/lanonasis/mcp-gateway/oauth"
	"github.com/lanonasis/mcp-gateway/tools"
)

// Handler is the HTTP protocol adapter.
type Handler struct {
	dispatcher *tools.Dispatcher
	resolver   auth.Authenticator
	events     broker.Broker
	hub        *connhub.Hub
	mux        *http.ServeMux
	log        *slog.Logger
}

var _ http.Handler = (*Handler)(nil)

// Config assembles a Handler.
type Config struct {
	Dispatcher *tools.Dispatcher
	Resolver   auth.Authenticator
	Events     broker.Broker
	Hub        *connhub.Hub
	// OAuth, when set, is mounted under /oauth/.
	OAuth *oauth.Handler
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// New builds the adapter's route table.
func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		dispatcher: cfg.Dispatcher,
		resolver:   cfg.Resolver,
		events:     cfg.Events,
		hub:        cfg.Hub,
		log:        log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/{name}", h.requireAuth(h.handleDirectToolCall))
	mux.HandleFunc("POST /mcp/message", h.requireAuth(h.handleEnvelope))
	mux.HandleFunc("GET /sse", h.requireAuth(h.handleSSE))
	mux.HandleFunc("GET /health", h.handleHealth)
	if cfg.OAuth != nil {
		mux.Handle("/oauth/", cfg.OAuth)
	}
	h.mux = mux

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Transport:  "http",
		RemoteAddr: r.RemoteAddr,
	})
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

// requireAuth resolves the caller before the wrapped handler runs. The
// 401 body is deliberately generic; detail is in the log only.
func (h *Handler) requireAuth(next func(w http.ResponseWriter, r *http.Request, p *auth.Principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.resolver.Resolve(r.Context(), r.Header)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r, p)
	}
}

// handleDirectToolCall serves POST /tools/{name} with the request body as
// the raw tool arguments.
func (h *Handler) handleDirectToolCall(w http.ResponseWriter, r *http.Request, p *auth.Principal) {
	name := r.PathValue("name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
		return
	}

	var args json.RawMessage
	if len(body) > 0 {
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body must be a JSON object"})
			return
		}
		args = body
	}

	result, rpcErr := h.dispatcher.CallTool(r.Context(), p, &mcp.CallToolRequest{Name: name, Arguments: args})
	if rpcErr != nil {
		writeJSON(w, statusForRPCError(rpcErr.Code), map[string]any{
			"error": map[string]any{"code": rpcErr.Code, "message": rpcErr.Message},
		})
		return
	}

	h.publishToolResult(r, name, result)
	writeJSON(w, http.StatusOK, result)
}

// handleEnvelope serves the generic JSON-RPC envelope. This is also the
// companion pull endpoint for SSE clients, whose push channel is
// one-directional.
func (h *Handler) handleEnvelope(w http.ResponseWriter, r *http.Request, p *auth.Principal) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
		return
	}

	req, parseErr := jsonrpc.ParseRequest(body)
	if parseErr != nil {
		writeJSON(w, http.StatusOK, jsonrpc.NewErrorResponse(nil, parseErr.Code, parseErr.Message, parseErr.Data))
		return
	}

	resp := h.dispatcher.HandleRequest(r.Context(), p, req)
	if req.Method == mcp.MethodCallTool && resp.Error == nil {
		h.publishToolResult(r, toolNameFromParams(req.Params), nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"active_push_conns": h.hub.Len(),
	})
}

// publishToolResult emits a gateway event so push subscribers observe
// tool activity. Failures are logged, never surfaced to the caller.
func (h *Handler) publishToolResult(r *http.Request, name string, result *mcp.CallToolResult) {
	if h.events == nil {
		return
	}
	isError := result != nil && result.IsError
	ev := connhub.Event{
		Type: "tool_result",
		Data: map[string]any{"tool": name, "isError": isError},
	}
	if err := connhub.Publish(r.Context(), h.events, ev); err != nil {
		h.log.WarnContext(r.Context(), "failed to publish tool_result event", "err", err)
	}
}

func toolNameFromParams(params json.RawMessage) string {
	var call mcp.CallToolRequest
	if err := json.Unmarshal(params, &call); err != nil {
		return ""
	}
	return call.Name
}

// statusForRPCError maps dispatcher error codes onto HTTP statuses for
// the direct (non-envelope) route.
func statusForRPCError(code jsonrpc.ErrorCode) int {
	switch code {
	case jsonrpc.ErrorCodeMethodNotFound:
		return http.StatusNotFound
	case jsonrpc.ErrorCodeInvalidParams, jsonrpc.ErrorCodeInvalidRequest, jsonrpc.ErrorCodeParseError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
