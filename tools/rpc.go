package tools

import (
	"context"
	"encoding/json"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/internal/jsonrpc"
	"github.com/lanonasis/mcp-gateway/internal/logctx"
	"github.com/lanonasis/mcp-gateway/mcp"
)

// HandleRequest serves one JSON-RPC request against the dispatcher. All
// four transport adapters route through this single entry point, so the
// method surface and error mapping are identical everywhere.
func (d *Dispatcher) HandleRequest(ctx context.Context, p *auth.Principal, req *jsonrpc.Request) *jsonrpc.Response {
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String()})

	switch req.Method {
	case mcp.MethodListTools:
		resp, err := jsonrpc.NewResultResponse(req.ID, d.ListTools(ctx))
		if err != nil {
			d.log.ErrorContext(ctx, "failed to marshal tools/list result", "err", err)
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
		}
		return resp

	case mcp.MethodCallTool:
		var call mcp.CallToolRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &call); err != nil {
				return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "params must carry a tool name and arguments", nil)
			}
		}
		if call.Name == "" {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "missing tool name", nil)
		}

		result, rpcErr := d.CallTool(ctx, p, &call)
		if rpcErr != nil {
			return jsonrpc.NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		}
		resp, err := jsonrpc.NewResultResponse(req.ID, result)
		if err != nil {
			d.log.ErrorContext(ctx, "failed to marshal tools/call result", "err", err)
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
		}
		return resp

	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found: "+req.Method, nil)
	}
}
