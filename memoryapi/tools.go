package memoryapi

import (
	"context"
	"errors"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/mcp"
	"github.com/lanonasis/mcp-gateway/tools"
)

type createArgs struct {
	Title      string   `json:"title" jsonschema:"description=Short title for the memory"`
	Content    string   `json:"content" jsonschema:"description=Memory content to store"`
	MemoryType string   `json:"memory_type,omitempty" jsonschema:"description=Category of memory,enum=context,enum=project,enum=knowledge,enum=reference"`
	Tags       []string `json:"tags,omitempty" jsonschema:"description=Tags for later retrieval"`
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"description=Natural-language search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results"`
}

type listArgs struct {
	Limit  int `json:"limit,omitempty" jsonschema:"description=Maximum number of results"`
	Offset int `json:"offset,omitempty" jsonschema:"description=Number of results to skip"`
}

type idArgs struct {
	ID string `json:"id" jsonschema:"description=Memory identifier"`
}

type updateArgs struct {
	ID      string   `json:"id" jsonschema:"description=Memory identifier"`
	Title   string   `json:"title,omitempty" jsonschema:"description=Replacement title"`
	Content string   `json:"content,omitempty" jsonschema:"description=Replacement content"`
	Tags    []string `json:"tags,omitempty" jsonschema:"description=Replacement tags"`
}

type emptyArgs struct{}

// Tools builds the gateway's static tool set over the memory service
// client. The set is registered once at startup and identical on every
// transport.
func Tools(c *Client) []tools.StaticTool {
	return []tools.StaticTool{
		tools.NewTool("create_memory", func(ctx context.Context, p *auth.Principal, args createArgs) (*mcp.CallToolResult, error) {
			if args.Title == "" || args.Content == "" {
				return tools.Errorf("title and content are required"), nil
			}
			mem, err := c.CreateMemory(ctx, p.Subject, &CreateMemoryRequest{
				Title:      args.Title,
				Content:    args.Content,
				MemoryType: args.MemoryType,
				Tags:       args.Tags,
			})
			if err != nil {
				return apiFailure(err)
			}
			return tools.JSONResult(mem)
		}, tools.WithDescription("Store a new memory in the Lanonasis memory service")),

		tools.NewTool("search_memories", func(ctx context.Context, p *auth.Principal, args searchArgs) (*mcp.CallToolResult, error) {
			if args.Query == "" {
				return tools.Errorf("query is required"), nil
			}
			matches, err := c.SearchMemories(ctx, p.Subject, args.Query, args.Limit)
			if err != nil {
				return apiFailure(err)
			}
			return tools.JSONResult(matches)
		}, tools.WithDescription("Semantic search across stored memories")),

		tools.NewTool("list_memories", func(ctx context.Context, p *auth.Principal, args listArgs) (*mcp.CallToolResult, error) {
			memories, err := c.ListMemories(ctx, p.Subject, args.Limit, args.Offset)
			if err != nil {
				return apiFailure(err)
			}
			return tools.JSONResult(memories)
		}, tools.WithDescription("List stored memories with pagination")),

		tools.NewTool("get_memory", func(ctx context.Context, p *auth.Principal, args idArgs) (*mcp.CallToolResult, error) {
			if args.ID == "" {
				return tools.Errorf("id is required"), nil
			}
			mem, err := c.GetMemory(ctx, p.Subject, args.ID)
			if err != nil {
				return apiFailure(err)
			}
			return tools.JSONResult(mem)
		}, tools.WithDescription("Fetch a single memory by id")),

		tools.NewTool("update_memory", func(ctx context.Context, p *auth.Principal, args updateArgs) (*mcp.CallToolResult, error) {
			if args.ID == "" {
				return tools.Errorf("id is required"), nil
			}
			mem, err := c.UpdateMemory(ctx, p.Subject, args.ID, &UpdateMemoryRequest{
				Title:   args.Title,
				Content: args.Content,
				Tags:    args.Tags,
			})
			if err != nil {
				return apiFailure(err)
			}
			return tools.JSONResult(mem)
		}, tools.WithDescription("Update an existing memory")),

		tools.NewTool("delete_memory", func(ctx context.Context, p *auth.Principal, args idArgs) (*mcp.CallToolResult, error) {
			if args.ID == "" {
				return tools.Errorf("id is required"), nil
			}
			if err := c.DeleteMemory(ctx, p.Subject, args.ID); err != nil {
				return apiFailure(err)
			}
			return tools.TextResult("memory deleted"), nil
		}, tools.WithDescription("Delete a memory by id")),

		tools.NewTool("get_health_status", func(ctx context.Context, p *auth.Principal, _ emptyArgs) (*mcp.CallToolResult, error) {
			status, err := c.Health(ctx)
			if err != nil {
				return apiFailure(err)
			}
			return tools.JSONResult(status)
		}, tools.WithDescription("Report upstream memory service health")),

		tools.NewTool("get_auth_status", func(ctx context.Context, p *auth.Principal, _ emptyArgs) (*mcp.CallToolResult, error) {
			return tools.JSONResult(map[string]any{
				"authenticated": true,
				"subject":       p.Subject,
				"method":        string(p.Kind),
				"scope":         p.Scope,
			})
		}, tools.WithDescription("Describe the caller's resolved authentication context")),
	}
}

// apiFailure renders an upstream API error as a tool-level failure.
// Anything else (including context cancellation) stays an error so the
// dispatcher reports it as internal.
func apiFailure(err error) (*mcp.CallToolResult, error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return tools.Errorf("memory service rejected the request: %s", apiErr.Message), nil
	}
	return nil, err
}
