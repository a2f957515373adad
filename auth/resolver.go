package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lanonasis/mcp-gateway/oauth"
)

var _ Authenticator = (*Resolver)(nil)

// Resolver is the production Authenticator. Precedence is fixed: a vendor
// key, when present, is the credential — a bearer token on the same
// request is ignored, and a malformed or invalid vendor key fails the
// request outright.
type Resolver struct {
	issuer *oauth.Issuer
	keys   VendorKeyVerifier
	log    *slog.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithVendorKeyVerifier enables the vendor key slot.
func WithVendorKeyVerifier(v VendorKeyVerifier) ResolverOption {
	return func(r *Resolver) { r.keys = v }
}

// WithResolverLogger overrides the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver builds a Resolver verifying bearer tokens against issuer.
func NewResolver(issuer *oauth.Issuer, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		issuer: issuer,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements Authenticator.
func (r *Resolver) Resolve(ctx context.Context, headers http.Header) (*Principal, error) {
	if key := headers.Get(HeaderVendorKey); key != "" {
		return r.resolveVendorKey(ctx, key)
	}

	if authz := headers.Get("Authorization"); authz != "" {
		return r.resolveBearer(ctx, authz)
	}

	r.log.DebugContext(ctx, "request carried no credentials")
	return nil, ErrUnauthorized
}

func (r *Resolver) resolveVendorKey(ctx context.Context, key string) (*Principal, error) {
	publicPart, err := ParseVendorKey(key)
	if err != nil {
		r.log.WarnContext(ctx, "vendor key rejected", "reason", "malformed")
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if r.keys == nil {
		r.log.WarnContext(ctx, "vendor key rejected", "reason", "no verifier configured")
		return nil, ErrUnauthorized
	}

	subject, err := r.keys.VerifyVendorKey(ctx, key)
	if err != nil {
		r.log.WarnContext(ctx, "vendor key rejected", "reason", "verification failed", "key_id", publicPart)
		return nil, fmt.Errorf("%w: vendor key verification failed", ErrUnauthorized)
	}

	return &Principal{
		Subject: subject,
		Kind:    KindVendorKey,
	}, nil
}

func (r *Resolver) resolveBearer(ctx context.Context, authz string) (*Principal, error) {
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		r.log.WarnContext(ctx, "bearer credential rejected", "reason", "malformed authorization header")
		return nil, ErrUnauthorized
	}

	claims, err := r.issuer.Verify(token)
	if err != nil {
		r.log.WarnContext(ctx, "bearer credential rejected", "reason", "token validation failed", "err", err)
		return nil, fmt.Errorf("%w: invalid bearer token", ErrUnauthorized)
	}
	// Refresh tokens never grant API access.
	if claims.Type == oauth.TokenTypeRefresh {
		r.log.WarnContext(ctx, "bearer credential rejected", "reason", "refresh token presented as access token")
		return nil, ErrUnauthorized
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.ClientID
	}

	return &Principal{
		Subject:  subject,
		ClientID: claims.ClientID,
		Scope:    claims.Scope,
		Kind:     KindBearer,
	}, nil
}
