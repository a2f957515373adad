// Package memoryapi is the gateway's client for the external memory
// service. The gateway delegates all memory business logic to this API;
// the client is a narrow contract of JSON-over-HTTP calls that surface
// errors rather than degrade silently.
package memoryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 30 * time.Second

// Memory is a single stored memory as the upstream service renders it.
type Memory struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	MemoryType string    `json:"memory_type,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// SearchMatch is one search hit with its relevance score.
type SearchMatch struct {
	Memory
	Score float64 `json:"score,omitempty"`
}

// HealthStatus reports upstream service health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// APIError is a non-2xx response from the memory service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memory API error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the memory service. It authenticates upstream calls
// with the gateway's own service key and forwards the resolved caller
// subject for attribution.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds a memory service client rooted at baseURL.
func NewClient(baseURL, serviceKey string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("memory API base URL is required")
	}
	c := &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateMemoryRequest is the payload for CreateMemory.
type CreateMemoryRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	MemoryType string   `json:"memory_type,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// CreateMemory stores a new memory.
func (c *Client) CreateMemory(ctx context.Context, subject string, req *CreateMemoryRequest) (*Memory, error) {
	var out Memory
	if err := c.do(ctx, subject, http.MethodPost, "/api/v1/memory", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchMemories performs a semantic search.
func (c *Client) SearchMemories(ctx context.Context, subject, query string, limit int) ([]SearchMatch, error) {
	body := map[string]any{"query": query}
	if limit > 0 {
		body["limit"] = limit
	}
	var out struct {
		Results []SearchMatch `json:"results"`
	}
	if err := c.do(ctx, subject, http.MethodPost, "/api/v1/memory/search", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ListMemories returns a page of memories.
func (c *Client) ListMemories(ctx context.Context, subject string, limit, offset int) ([]Memory, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var out struct {
		Memories []Memory `json:"memories"`
	}
	if err := c.do(ctx, subject, http.MethodGet, "/api/v1/memory", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

// GetMemory fetches one memory by id.
func (c *Client) GetMemory(ctx context.Context, subject, id string) (*Memory, error) {
	var out Memory
	if err := c.do(ctx, subject, http.MethodGet, "/api/v1/memory/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMemoryRequest is the payload for UpdateMemory. Zero-valued fields
// are left unchanged upstream.
type UpdateMemoryRequest struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// UpdateMemory updates an existing memory.
func (c *Client) UpdateMemory(ctx context.Context, subject, id string, req *UpdateMemoryRequest) (*Memory, error) {
	var out Memory
	if err := c.do(ctx, subject, http.MethodPut, "/api/v1/memory/"+url.PathEscape(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMemory removes a memory by id.
func (c *Client) DeleteMemory(ctx context.Context, subject, id string) error {
	return c.do(ctx, subject, http.MethodDelete, "/api/v1/memory/"+url.PathEscape(id), nil, nil, nil)
}

// Health checks upstream service health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, "", http.MethodGet, "/api/v1/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyVendorKey implements auth.VendorKeyVerifier against the memory
// service's key-verification endpoint.
func (c *Client) VerifyVendorKey(ctx context.Context, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/auth/verify", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("X-Api-Key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vendor key verification failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "vendor key rejected"}
	}

	var out struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode verification response: %w", err)
	}
	return out.UserID, nil
}

// do performs one JSON round trip. Context cancellation propagates to the
// transport; non-2xx statuses become *APIError.
func (c *Client) do(ctx context.Context, subject, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.serviceKey != "" {
		req.Header.Set("X-Api-Key", c.serviceKey)
	}
	if subject != "" {
		req.Header.Set("X-On-Behalf-Of", subject)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("memory API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var apiBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiBody); err == nil {
			if apiBody.Message != "" {
				msg = apiBody.Message
			} else if apiBody.Error != "" {
				msg = apiBody.Error
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode memory API response: %w", err)
	}
	return nil
}
