package tools

import (
	"context"
	"fmt"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/mcp"
)

// Handler is the function signature used to handle a tool invocation.
// The principal has already been resolved by the transport adapter.
type Handler func(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// StaticTool pairs a tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    Handler
}

// Registry is the static tool table. It is populated once at startup and
// read-only thereafter, so it is safe for concurrent use by every
// transport loop without locking.
type Registry struct {
	tools    []mcp.Tool
	handlers map[string]Handler
}

// NewRegistry builds a registry from tool definitions. Duplicate names
// are a programming error and fail construction.
func NewRegistry(defs ...StaticTool) (*Registry, error) {
	r := &Registry{
		tools:    make([]mcp.Tool, 0, len(defs)),
		handlers: make(map[string]Handler, len(defs)),
	}
	for _, def := range defs {
		if def.Descriptor.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := r.handlers[def.Descriptor.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", def.Descriptor.Name)
		}
		r.tools = append(r.tools, def.Descriptor)
		r.handlers[def.Descriptor.Name] = def.Handler
	}
	return r, nil
}

// List returns the tool descriptors in registration order. The slice is
// copied so callers cannot mutate the table.
func (r *Registry) List() []mcp.Tool {
	out := make([]mcp.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// handler returns the handler for name, if registered.
func (r *Registry) handler(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}
