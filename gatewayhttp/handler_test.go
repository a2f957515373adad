package gatewayhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lanonasis/mcp-gateway/auth"
	brokermemory "github.com/lanonasis/mcp-gateway/broker/memory"
	"github.com/lanonasis/mcp-gateway/internal/connhub"
	"github.com/lanonasis/mcp-gateway/internal/jsonrpc"
	"github.com/lanonasis/mcp-gateway/mcp"
	"github.com/lanonasis/mcp-gateway/oauth"
	storagememory "github.com/lanonasis/mcp-gateway/storage/memory"
	"github.com/lanonasis/mcp-gateway/tools"
)

const testVendorKey = "pk_test.sk_test"

func newTestHandler(t *testing.T) (*Handler, *connhub.Hub) {
	t.Helper()

	reg, err := tools.NewRegistry(
		tools.StaticTool{
			Descriptor: mcp.Tool{Name: "echo", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			Handler: func(ctx context.Context, p *auth.Principal, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return tools.TextResult("subject=" + p.Subject), nil
			},
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	issuer, err := oauth.NewIssuer("http-test-secret", "", "")
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	resolver := auth.NewResolver(issuer, auth.WithVendorKeyVerifier(auth.StaticVendorKeys{
		testVendorKey: "user-1",
	}))

	events := brokermemory.New()
	t.Cleanup(func() { _ = events.Close() })
	hub := connhub.New(nil)

	h := New(Config{
		Dispatcher: tools.NewDispatcher(reg, nil),
		Resolver:   resolver,
		Events:     events,
		Hub:        hub,
	})
	return h, hub
}

func TestDirectToolCall(t *testing.T) {
	h, _ := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tools/echo", strings.NewReader(`{"x":1}`))
		req.Header.Set(auth.HeaderVendorKey, testVendorKey)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var res mcp.CallToolResult
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("body does not decode: %v", err)
		}
		if len(res.Content) != 1 || res.Content[0].Text != "subject=user-1" {
			t.Fatalf("result = %+v", res)
		}
	})

	t.Run("unknown tool maps to 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tools/nope", nil)
		req.Header.Set(auth.HeaderVendorKey, testVendorKey)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("invalid body maps to 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tools/echo", strings.NewReader(`{broken`))
		req.Header.Set(auth.HeaderVendorKey, testVendorKey)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("no credentials maps to generic 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tools/echo", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("body does not decode: %v", err)
		}
		if body["error"] != "unauthorized" {
			t.Errorf("body = %v, want generic unauthorized", body)
		}
	})
}

func TestEnvelope(t *testing.T) {
	h, _ := newTestHandler(t)

	post := func(t *testing.T, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/mcp/message", strings.NewReader(body))
		req.Header.Set(auth.HeaderVendorKey, testVendorKey)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("tools/list", func(t *testing.T) {
		rec := post(t, `{"jsonrpc":"2.0","method":"tools/list","id":1}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp jsonrpc.Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("body does not decode: %v", err)
		}
		if resp.Error != nil {
			t.Fatalf("unexpected error: %v", resp.Error)
		}
		var res mcp.ListToolsResult
		if err := json.Unmarshal(resp.Result, &res); err != nil {
			t.Fatalf("result does not decode: %v", err)
		}
		if len(res.Tools) != 1 || res.Tools[0].Name != "echo" {
			t.Fatalf("tools = %+v", res.Tools)
		}
	})

	t.Run("parse error stays HTTP 200", func(t *testing.T) {
		rec := post(t, `{broken`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp jsonrpc.Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("body does not decode: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeParseError {
			t.Fatalf("expected -32700, got %v", resp.Error)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		rec := post(t, `{"jsonrpc":"2.0","method":"prompts/list","id":2}`)
		var resp jsonrpc.Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("body does not decode: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeMethodNotFound {
			t.Fatalf("expected -32601, got %v", resp.Error)
		}
	})
}

func TestHealth(t *testing.T) {
	h, hub := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status    string `json:"status"`
		PushConns int    `json:"active_push_conns"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body does not decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.PushConns != hub.Len() {
		t.Errorf("active_push_conns = %d, hub len = %d", body.PushConns, hub.Len())
	}
}

func TestOAuthMount(t *testing.T) {
	reg, err := tools.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	issuer, err := oauth.NewIssuer("mount-test-secret", "", "")
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	store, err := storagememory.New(16)
	if err != nil {
		t.Fatalf("failed to build storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	oauthSrv := oauth.NewServer(
		oauth.NewClientRegistry(&oauth.Client{ID: "c1", Secret: "s1"}),
		oauth.NewCodeStore(store, 0),
		issuer,
	)

	h := New(Config{
		Dispatcher: tools.NewDispatcher(reg, nil),
		Resolver:   auth.NewResolver(issuer),
		Hub:        connhub.New(nil),
		OAuth:      oauth.NewHandler(oauthSrv, nil),
	})

	req := httptest.NewRequest(http.MethodGet, "/oauth/client-info", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var info oauth.ClientInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("body does not decode: %v", err)
	}
	if info.ClientID != "c1" {
		t.Errorf("client_id = %q", info.ClientID)
	}
}
