package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/internal/jsonrpc"
	"github.com/lanonasis/mcp-gateway/mcp"
)

func testPrincipal() *auth.Principal {
	return &auth.Principal{Subject: "user-1", Kind: auth.KindBearer}
}

func echoTool() StaticTool {
	return StaticTool{
		Descriptor: mcp.Tool{
			Name:        "echo",
			Description: "Echoes its input back",
			InputSchema: mcp.ToolInputSchema{Type: "object"},
		},
		Handler: func(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return TextResult(string(req.Arguments)), nil
		},
	}
}

func newTestDispatcher(t *testing.T, defs ...StaticTool) *Dispatcher {
	t.Helper()
	reg, err := NewRegistry(defs...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return NewDispatcher(reg, slog.Default())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(echoTool(), echoTool())
	if err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	_, err := NewRegistry(StaticTool{})
	if err == nil {
		t.Fatal("expected empty-name error")
	}
}

func TestListTools(t *testing.T) {
	d := newTestDispatcher(t, echoTool())

	res := d.ListTools(context.Background())
	if len(res.Tools) != 1 || res.Tools[0].Name != "echo" {
		t.Fatalf("ListTools = %+v, want one tool named echo", res.Tools)
	}

	// Mutating the returned slice must not affect the registry.
	res.Tools[0].Name = "mutated"
	if again := d.ListTools(context.Background()); again.Tools[0].Name != "echo" {
		t.Error("registry table was mutated through the listing")
	}
}

func TestCallTool(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		d := newTestDispatcher(t, echoTool())
		res, rpcErr := d.CallTool(ctx, testPrincipal(), &mcp.CallToolRequest{
			Name:      "echo",
			Arguments: json.RawMessage(`{"text":"hi"}`),
		})
		if rpcErr != nil {
			t.Fatalf("CallTool failed: %v", rpcErr)
		}
		if len(res.Content) != 1 || res.Content[0].Type != "text" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("unknown tool maps to method not found", func(t *testing.T) {
		d := newTestDispatcher(t, echoTool())
		_, rpcErr := d.CallTool(ctx, testPrincipal(), &mcp.CallToolRequest{Name: "nope"})
		if rpcErr == nil || rpcErr.Code != jsonrpc.ErrorCodeMethodNotFound {
			t.Fatalf("expected -32601, got %v", rpcErr)
		}
	})

	t.Run("invalid params map to -32602", func(t *testing.T) {
		d := newTestDispatcher(t, StaticTool{
			Descriptor: mcp.Tool{Name: "strict", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			Handler: func(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, fmt.Errorf("%w: bad shape", ErrInvalidParams)
			},
		})
		_, rpcErr := d.CallTool(ctx, testPrincipal(), &mcp.CallToolRequest{Name: "strict"})
		if rpcErr == nil || rpcErr.Code != jsonrpc.ErrorCodeInvalidParams {
			t.Fatalf("expected -32602, got %v", rpcErr)
		}
	})

	t.Run("handler error maps to internal error", func(t *testing.T) {
		d := newTestDispatcher(t, StaticTool{
			Descriptor: mcp.Tool{Name: "broken", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			Handler: func(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("backend down")
			},
		})
		_, rpcErr := d.CallTool(ctx, testPrincipal(), &mcp.CallToolRequest{Name: "broken"})
		if rpcErr == nil || rpcErr.Code != jsonrpc.ErrorCodeInternalError {
			t.Fatalf("expected -32603, got %v", rpcErr)
		}
	})

	t.Run("handler panic is recovered", func(t *testing.T) {
		d := newTestDispatcher(t, StaticTool{
			Descriptor: mcp.Tool{Name: "bomb", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			Handler: func(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				panic("boom")
			},
		})
		_, rpcErr := d.CallTool(ctx, testPrincipal(), &mcp.CallToolRequest{Name: "bomb"})
		if rpcErr == nil || rpcErr.Code != jsonrpc.ErrorCodeInternalError {
			t.Fatalf("expected -32603 after panic, got %v", rpcErr)
		}
	})

	t.Run("nil content is normalized", func(t *testing.T) {
		d := newTestDispatcher(t, StaticTool{
			Descriptor: mcp.Tool{Name: "bare", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			Handler: func(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return &mcp.CallToolResult{}, nil
			},
		})
		res, rpcErr := d.CallTool(ctx, testPrincipal(), &mcp.CallToolRequest{Name: "bare"})
		if rpcErr != nil {
			t.Fatalf("CallTool failed: %v", rpcErr)
		}
		if res.Content == nil {
			t.Fatal("content should be an empty array, not nil")
		}
	})
}

func TestHandleRequest(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, echoTool())

	parse := func(t *testing.T, raw string) *jsonrpc.Request {
		t.Helper()
		req, rpcErr := jsonrpc.ParseRequest([]byte(raw))
		if rpcErr != nil {
			t.Fatalf("ParseRequest failed: %v", rpcErr)
		}
		return req
	}

	t.Run("tools/list", func(t *testing.T) {
		resp := d.HandleRequest(ctx, testPrincipal(), parse(t, `{"jsonrpc":"2.0","method":"tools/list","id":1}`))
		if resp.Error != nil {
			t.Fatalf("unexpected error: %v", resp.Error)
		}
		var res mcp.ListToolsResult
		if err := json.Unmarshal(resp.Result, &res); err != nil {
			t.Fatalf("result does not decode: %v", err)
		}
		if len(res.Tools) != 1 {
			t.Fatalf("got %d tools, want 1", len(res.Tools))
		}
	})

	t.Run("tools/call", func(t *testing.T) {
		resp := d.HandleRequest(ctx, testPrincipal(), parse(t, `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}},"id":2}`))
		if resp.Error != nil {
			t.Fatalf("unexpected error: %v", resp.Error)
		}
	})

	t.Run("tools/call without name", func(t *testing.T) {
		resp := d.HandleRequest(ctx, testPrincipal(), parse(t, `{"jsonrpc":"2.0","method":"tools/call","params":{},"id":3}`))
		if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInvalidParams {
			t.Fatalf("expected -32602, got %v", resp.Error)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		resp := d.HandleRequest(ctx, testPrincipal(), parse(t, `{"jsonrpc":"2.0","method":"resources/list","id":4}`))
		if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeMethodNotFound {
			t.Fatalf("expected -32601, got %v", resp.Error)
		}
	})
}
