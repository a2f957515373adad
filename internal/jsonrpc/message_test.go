package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestParseRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req, rpcErr := ParseRequest([]byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
		if rpcErr != nil {
			t.Fatalf("ParseRequest failed: %v", rpcErr)
		}
		if req.Method != "tools/list" {
			t.Errorf("Method = %q, want tools/list", req.Method)
		}
	})

	t.Run("invalid JSON maps to parse error", func(t *testing.T) {
		_, rpcErr := ParseRequest([]byte(`{not json`))
		if rpcErr == nil || rpcErr.Code != ErrorCodeParseError {
			t.Fatalf("expected -32700, got %v", rpcErr)
		}
	})

	t.Run("wrong version maps to invalid request", func(t *testing.T) {
		_, rpcErr := ParseRequest([]byte(`{"jsonrpc":"1.0","method":"x","id":1}`))
		if rpcErr == nil || rpcErr.Code != ErrorCodeInvalidRequest {
			t.Fatalf("expected -32600, got %v", rpcErr)
		}
	})

	t.Run("missing method maps to invalid request", func(t *testing.T) {
		_, rpcErr := ParseRequest([]byte(`{"jsonrpc":"2.0","id":1}`))
		if rpcErr == nil || rpcErr.Code != ErrorCodeInvalidRequest {
			t.Fatalf("expected -32600, got %v", rpcErr)
		}
	})

	t.Run("boolean id is rejected", func(t *testing.T) {
		_, rpcErr := ParseRequest([]byte(`{"jsonrpc":"2.0","method":"x","id":true}`))
		if rpcErr == nil || rpcErr.Code != ErrorCodeParseError {
			t.Fatalf("expected -32700, got %v", rpcErr)
		}
	})
}

func TestRequestIDRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"string id", `"abc"`, `"abc"`},
		{"integer id", `42`, `42`},
		{"fractional id", `1.5`, `1.5`},
		{"null id", `null`, `null`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var id RequestID
			if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			out, err := json.Marshal(id)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(out) != tc.want {
				t.Errorf("round trip %s -> %s, want %s", tc.in, out, tc.want)
			}
		})
	}
}

func TestResponseEchoesRequestID(t *testing.T) {
	req, rpcErr := ParseRequest([]byte(`{"jsonrpc":"2.0","method":"tools/list","id":"req-7"}`))
	if rpcErr != nil {
		t.Fatalf("ParseRequest failed: %v", rpcErr)
	}

	resp, err := NewResultResponse(req.ID, map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("NewResultResponse failed: %v", err)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var echoed struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(out, &echoed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if echoed.JSONRPC != ProtocolVersion {
		t.Errorf("jsonrpc = %q, want %q", echoed.JSONRPC, ProtocolVersion)
	}
	if string(echoed.ID) != `"req-7"` {
		t.Errorf("id = %s, want %q", echoed.ID, `"req-7"`)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(NewRequestID(3), ErrorCodeMethodNotFound, "method not found: nope", nil)
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Error *Error          `json:"error"`
		ID    json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != ErrorCodeMethodNotFound {
		t.Fatalf("error = %+v, want code -32601", decoded.Error)
	}
	if string(decoded.ID) != "3" {
		t.Errorf("id = %s, want 3", decoded.ID)
	}
}
