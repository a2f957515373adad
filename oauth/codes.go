package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lanonasis/mcp-gateway/storage"
)

// DefaultCodeTTL is how long an issued authorization code remains
// exchangeable.
const DefaultCodeTTL = 600 * time.Second

// codeEntropyBytes gives 256 bits of entropy per authorization code.
const codeEntropyBytes = 32

// AuthorizationCode is the state bound to a pending code. It lives in the
// code store from issuance until consumption or TTL expiry, whichever
// comes first.
type AuthorizationCode struct {
	Code                string    `json:"code"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	UserID              string    `json:"user_id,omitempty"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// GenerateCode returns a cryptographically random, URL-safe code.
func GenerateCode() (string, error) {
	buf := make([]byte, codeEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CodeStore persists pending authorization codes in a TTL-bound backing
// store. It owns the AuthorizationCode for its whole lifetime: issued
// codes are visible until consumed or expired, and consumption is
// single-winner even under concurrent exchanges for the same code.
type CodeStore struct {
	store storage.Storage
	ttl   time.Duration
}

// NewCodeStore wraps a storage backend. ttl <= 0 selects DefaultCodeTTL.
func NewCodeStore(store storage.Storage, ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &CodeStore{store: store, ttl: ttl}
}

// TTL returns the configured code lifetime.
func (cs *CodeStore) TTL() time.Duration {
	return cs.ttl
}

// Store persists code state for the configured TTL.
func (cs *CodeStore) Store(ctx context.Context, code *AuthorizationCode) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code: %w", err)
	}
	if err := cs.store.Set(ctx, code.Code, payload, storage.WithTTL(cs.ttl)); err != nil {
		return fmt.Errorf("failed to store authorization code: %w", err)
	}
	return nil
}

// Consume atomically retrieves and deletes the state for code. It returns
// (nil, nil) when the code is absent, expired, or already consumed. Only
// one of any set of concurrent callers receives the state.
func (cs *CodeStore) Consume(ctx context.Context, code string) (*AuthorizationCode, error) {
	item, err := cs.store.Consume(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}
	if item == nil {
		return nil, nil
	}

	var ac AuthorizationCode
	if err := json.Unmarshal(item.Data, &ac); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization code: %w", err)
	}
	// Storage-level expiry already filters lapsed items; the embedded
	// timestamp guards against a backend without native TTL support.
	if time.Now().After(ac.ExpiresAt) {
		return nil, nil
	}
	return &ac, nil
}

// Delete removes code without returning its state.
func (cs *CodeStore) Delete(ctx context.Context, code string) error {
	return cs.store.Delete(ctx, code)
}
