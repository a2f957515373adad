package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token lifetimes are intrinsic to the data, not the request path.
const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenTypeRefresh marks refresh tokens in the "type" claim. Access tokens
// omit the claim.
const TokenTypeRefresh = "refresh"

// DefaultAudience is the audience claim stamped into issued tokens.
const DefaultAudience = "lanonasis-mcp-api"

// ErrMissingSecret is returned when an Issuer is constructed without a
// signing secret. Callers treat this as a fatal boot error.
var ErrMissingSecret = errors.New("oauth: token signing secret is required")

// ErrInvalidToken is returned for tokens that fail signature, expiry, or
// claim validation.
var ErrInvalidToken = errors.New("oauth: invalid token")

// Claims is the claim set carried by issued tokens.
type Claims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Type     string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access and refresh tokens. It is a pure
// function of the signing secret and the presented claims; the only state
// is configuration.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
}

// NewIssuer builds an Issuer. The secret is mandatory; issuer and audience
// fall back to defaults when empty.
func NewIssuer(secret, issuerURL, audience string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if issuerURL == "" {
		issuerURL = "lanonasis-mcp-gateway"
	}
	if audience == "" {
		audience = DefaultAudience
	}
	return &Issuer{
		secret:   []byte(secret),
		issuer:   issuerURL,
		audience: audience,
	}, nil
}

// Audience returns the audience stamped into issued tokens.
func (i *Issuer) Audience() string {
	return i.audience
}

// IssueAccessToken signs a one-hour access token for the given client.
func (i *Issuer) IssueAccessToken(clientID, scope, userID string) (string, error) {
	return i.sign(clientID, scope, userID, "", AccessTokenTTL)
}

// IssueRefreshToken signs a seven-day refresh token for the given client.
func (i *Issuer) IssueRefreshToken(clientID, scope, userID string) (string, error) {
	return i.sign(clientID, scope, userID, TokenTypeRefresh, RefreshTokenTTL)
}

func (i *Issuer) sign(clientID, scope, userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID: clientID,
		Scope:    scope,
		UserID:   userID,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token issued by this Issuer: HS256
// signature, expiry, issuer, and audience. The claims are returned for
// the caller to inspect (e.g. the "type" claim on refresh tokens).
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
