package oauth

import (
	"crypto/subtle"
	"errors"
)

// Client is a statically configured OAuth client. The table is built at
// boot and read-only at runtime.
type Client struct {
	ID                  string
	Secret              string
	AllowedRedirectURIs []string
}

// ValidateSecret compares the presented secret in constant time.
func (c *Client) ValidateSecret(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

// AllowsRedirectURI reports whether uri is on the client's allow-list.
// Matching is byte-for-byte; no normalization is applied.
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, allowed := range c.AllowedRedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// ErrClientNotFound is returned when a client id is not in the table.
var ErrClientNotFound = errors.New("oauth: client not found")

// ClientRegistry is an immutable lookup table of configured clients.
type ClientRegistry struct {
	clients map[string]*Client
}

// NewClientRegistry copies the given clients into a registry.
func NewClientRegistry(clients ...*Client) *ClientRegistry {
	m := make(map[string]*Client, len(clients))
	for _, c := range clients {
		m[c.ID] = c
	}
	return &ClientRegistry{clients: m}
}

// Lookup returns the client for id, or ErrClientNotFound.
func (r *ClientRegistry) Lookup(id string) (*Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return c, nil
}
