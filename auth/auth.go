package auth

import (
	"context"
	"errors"
	"net/http"
)

// ErrUnauthorized indicates authentication failed or no valid credentials
// were supplied. It is the only error surfaced to callers; detail stays
// in the log.
var ErrUnauthorized = errors.New("unauthorized")

// Kind identifies which credential slot authenticated the caller.
type Kind string

const (
	// KindVendorKey is a pk_X.sk_Y vendor key.
	KindVendorKey Kind = "vendor_key"
	// KindBearer is an OAuth-issued or externally minted bearer JWT.
	KindBearer Kind = "bearer"
	// KindLocal is the implicit identity of a stdio peer, which shares
	// the gateway's own process.
	KindLocal Kind = "local"
)

// Principal is the resolved caller identity handed to the dispatcher.
type Principal struct {
	// Subject uniquely identifies the caller (user id or key owner).
	Subject string
	// ClientID is set for OAuth-issued bearer tokens.
	ClientID string
	// Scope is the space-delimited scope granted to the caller.
	Scope string
	// Kind records which credential slot matched.
	Kind Kind
}

// Authenticator resolves a caller identity from transport-neutral
// headers. Implementations return ErrUnauthorized (possibly wrapped) for
// any credential failure.
type Authenticator interface {
	Resolve(ctx context.Context, headers http.Header) (*Principal, error)
}
