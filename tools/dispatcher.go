package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/internal/jsonrpc"
	"github.com/lanonasis/mcp-gateway/internal/logctx"
	"github.com/lanonasis/mcp-gateway/mcp"
)

// Dispatcher validates tool invocations against the registry and executes
// them. Every adapter routes through the same instance, so behavior is
// identical regardless of transport.
type Dispatcher struct {
	reg *Registry
	log *slog.Logger
}

// NewDispatcher builds a dispatcher over a registry.
func NewDispatcher(reg *Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{reg: reg, log: log}
}

// ListTools is a pure read of the static table.
func (d *Dispatcher) ListTools(ctx context.Context) *mcp.ListToolsResult {
	return &mcp.ListToolsResult{Tools: d.reg.List()}
}

// CallTool executes a tool invocation. Protocol-level failures come back
// as *jsonrpc.Error: unknown name maps to MethodNotFound, argument
// decoding failures to InvalidParams, and handler errors or panics to
// InternalError. Handler panics never terminate the serving process.
func (d *Dispatcher) CallTool(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (result *mcp.CallToolResult, rpcErr *jsonrpc.Error) {
	ctx = logctx.WithToolCall(ctx, &logctx.ToolCallData{ToolName: req.Name})

	handler, ok := d.reg.handler(req.Name)
	if !ok {
		d.log.WarnContext(ctx, "unknown tool requested")
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.ErrorCodeMethodNotFound,
			Message: fmt.Sprintf("unknown tool: %s", req.Name),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorContext(ctx, "tool handler panicked", "panic", r)
			result = nil
			rpcErr = &jsonrpc.Error{
				Code:    jsonrpc.ErrorCodeInternalError,
				Message: fmt.Sprintf("tool %s failed: internal error", req.Name),
			}
		}
	}()

	res, err := handler(ctx, p, req)
	if err != nil {
		if errors.Is(err, ErrInvalidParams) {
			d.log.WarnContext(ctx, "tool arguments rejected", "err", err)
			return nil, &jsonrpc.Error{
				Code:    jsonrpc.ErrorCodeInvalidParams,
				Message: err.Error(),
			}
		}
		d.log.ErrorContext(ctx, "tool handler failed", "err", err)
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.ErrorCodeInternalError,
			Message: fmt.Sprintf("tool %s failed: %v", req.Name, err),
		}
	}

	if res == nil {
		res = &mcp.CallToolResult{Content: []mcp.ContentBlock{}}
	}
	if res.Content == nil {
		res.Content = []mcp.ContentBlock{}
	}
	return res, nil
}
