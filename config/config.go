// Package config loads process configuration from the environment and
// enforces the boot-time invariants: the token-signing secret and the
// OAuth client secret must exist before the process accepts a single
// connection. Their absence is a startup failure, never a per-request
// error.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the process-wide configuration. It is constructed once at
// boot and passed into the components that need it; nothing mutates it
// afterwards.
type Config struct {
	// ListenAddr is the address the HTTP/WebSocket/SSE listener binds.
	ListenAddr string `env:"GATEWAY_LISTEN_ADDR,default=:8080"`

	// BaseURL is the public base URL used in the OAuth discovery document.
	BaseURL string `env:"GATEWAY_BASE_URL,default=http://localhost:8080"`

	// TokenSigningSecret signs access and refresh tokens. Required.
	TokenSigningSecret string `env:"GATEWAY_TOKEN_SECRET"`

	// TokenAudience is stamped into issued tokens.
	TokenAudience string `env:"GATEWAY_TOKEN_AUDIENCE,default=lanonasis-mcp-api"`

	// OAuthClientID identifies the single configured OAuth client.
	OAuthClientID string `env:"GATEWAY_OAUTH_CLIENT_ID,default=lanonasis-mcp"`

	// OAuthClientSecret authenticates the configured client. Required.
	OAuthClientSecret string `env:"GATEWAY_OAUTH_CLIENT_SECRET"`

	// OAuthRedirectURIs is the comma-separated redirect allow-list.
	OAuthRedirectURIs string `env:"GATEWAY_OAUTH_REDIRECT_URIS"`

	// CodeTTL bounds the lifetime of issued authorization codes.
	CodeTTL time.Duration `env:"GATEWAY_CODE_TTL,default=600s"`

	// RedisURL selects the Redis backend for code storage and event
	// fan-out. Empty selects the in-memory backends.
	RedisURL string `env:"GATEWAY_REDIS_URL"`

	// MemoryAPIURL is the base URL of the external memory service.
	MemoryAPIURL string `env:"GATEWAY_MEMORY_API_URL,default=https://api.lanonasis.com"`

	// MemoryAPIKey authenticates the gateway's own calls to the memory
	// service and backs vendor key verification.
	MemoryAPIKey string `env:"GATEWAY_MEMORY_API_KEY"`
}

// ErrMissingSecrets is wrapped by Validate failures so main can
// distinguish misconfiguration from load errors.
var ErrMissingSecrets = errors.New("config: required secrets are missing")

// Load decodes configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces boot-time invariants.
func (c *Config) Validate() error {
	var missing []string
	if c.TokenSigningSecret == "" {
		missing = append(missing, "GATEWAY_TOKEN_SECRET")
	}
	if c.OAuthClientSecret == "" {
		missing = append(missing, "GATEWAY_OAUTH_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSecrets, strings.Join(missing, ", "))
	}
	return nil
}

// RedirectURIs splits the configured allow-list.
func (c *Config) RedirectURIs() []string {
	if c.OAuthRedirectURIs == "" {
		return nil
	}
	parts := strings.Split(c.OAuthRedirectURIs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
