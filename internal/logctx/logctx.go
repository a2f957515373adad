// Package logctx enriches slog records with request, RPC, and tool-call
// attributes carried on the context so every log line emitted below a
// transport adapter identifies the work it belongs to.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps an slog.Handler and appends context-carried groups.
type Handler struct {
	slog.Handler
}

// NewHandler wraps inner so records pick up context attributes.
func NewHandler(inner slog.Handler) Handler {
	return Handler{Handler: inner}
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("transport", rd.Transport),
			slog.String("remote_addr", rd.RemoteAddr),
		))
	}

	if msg, ok := ctx.Value(rpcMsgKey{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
		))
	}

	if td, ok := ctx.Value(toolCallKey{}).(*ToolCallData); ok {
		r.AddAttrs(slog.Group("tool",
			slog.String("name", td.ToolName),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type requestDataKey struct{}

// RequestData identifies one inbound unit of transport work.
type RequestData struct {
	RequestID  string
	Transport  string
	RemoteAddr string
}

// WithRequestData attaches request attributes for downstream log records.
func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

type rpcMsgKey struct{}

// RPCMessage identifies the JSON-RPC frame being served.
type RPCMessage struct {
	Method string
	ID     string
}

// WithRPCMessage attaches RPC frame attributes for downstream log records.
func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsgKey{}, msg)
}

type toolCallKey struct{}

// ToolCallData identifies the tool being invoked.
type ToolCallData struct {
	ToolName string
}

// WithToolCall attaches tool attributes for downstream log records.
func WithToolCall(ctx context.Context, td *ToolCallData) context.Context {
	return context.WithValue(ctx, toolCallKey{}, td)
}
