package oauth

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Grant types accepted by the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// ResponseTypeCode is the only supported authorization response type.
const ResponseTypeCode = "code"

// ScopesSupported lists the scopes advertised by the discovery document.
var ScopesSupported = []string{"read", "write", "admin"}

// AuthorizeRequest carries the parameters of a GET /oauth/authorize call.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// TokenRequest carries the parameters of a POST /oauth/token call.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
	RefreshToken string
}

// TokenResponse is the success body of the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ClientInfo is the static discovery document served by /oauth/client-info.
type ClientInfo struct {
	ClientID                      string   `json:"client_id"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	ScopesSupported               []string `json:"scopes_supported"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
}

// Server orchestrates the authorize and token endpoints over a client
// table, a code store, and a token issuer. It holds no mutable state of
// its own; all shared state lives behind the CodeStore.
type Server struct {
	clients *ClientRegistry
	codes   *CodeStore
	issuer  *Issuer
	baseURL string
	log     *slog.Logger
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLogger overrides the server's logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithBaseURL sets the public base URL used in the discovery document.
func WithBaseURL(u string) ServerOption {
	return func(s *Server) { s.baseURL = u }
}

// NewServer assembles an authorization server from its collaborators.
func NewServer(clients *ClientRegistry, codes *CodeStore, issuer *Issuer, opts ...ServerOption) *Server {
	s := &Server{
		clients: clients,
		codes:   codes,
		issuer:  issuer,
		baseURL: "",
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize validates an authorization request and, on success, issues a
// single-use code and returns the redirect URL carrying it. The returned
// *Error is nil on success.
func (s *Server) Authorize(ctx context.Context, req *AuthorizeRequest) (redirect string, oerr *Error) {
	if req.ResponseType != ResponseTypeCode {
		return "", ErrInvalidRequest("response_type must be \"code\"")
	}

	client, err := s.clients.Lookup(req.ClientID)
	if err != nil {
		return "", ErrInvalidClient("unknown client")
	}

	if req.RedirectURI == "" || !client.AllowsRedirectURI(req.RedirectURI) {
		return "", ErrInvalidRequest("redirect_uri is not registered for this client")
	}

	method := req.CodeChallengeMethod
	if req.CodeChallenge != "" {
		if method == "" {
			method = CodeChallengeMethodPlain
		}
		if err := ValidateChallengeMethod(method); err != nil {
			return "", ErrInvalidRequest(err.Error())
		}
	}

	code, err := GenerateCode()
	if err != nil {
		s.log.ErrorContext(ctx, "authorization code generation failed", "err", err)
		return "", ErrServerError("failed to issue authorization code")
	}

	ac := &AuthorizationCode{
		Code:                code,
		ClientID:            client.ID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: method,
		ExpiresAt:           time.Now().Add(s.codes.TTL()),
	}
	if req.CodeChallenge == "" {
		ac.CodeChallengeMethod = ""
	}

	if err := s.codes.Store(ctx, ac); err != nil {
		s.log.ErrorContext(ctx, "failed to persist authorization code", "err", err, "client_id", client.ID)
		return "", ErrServerError("failed to persist authorization code")
	}

	loc, err := url.Parse(req.RedirectURI)
	if err != nil {
		// The allow-list is operator-controlled; an unparsable entry is a
		// configuration bug, not caller input.
		s.log.ErrorContext(ctx, "registered redirect_uri does not parse", "err", err, "client_id", client.ID)
		return "", ErrServerError("invalid redirect_uri configuration")
	}
	q := loc.Query()
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	loc.RawQuery = q.Encode()

	s.log.InfoContext(ctx, "authorization code issued", "client_id", client.ID, "scope", req.Scope, "pkce", req.CodeChallenge != "")
	return loc.String(), nil
}

// Token serves the token endpoint for both supported grants.
func (s *Server) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, *Error) {
	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return s.exchangeCode(ctx, req)
	case GrantTypeRefreshToken:
		return s.refresh(ctx, req)
	default:
		return nil, ErrInvalidRequest("unsupported grant_type")
	}
}

// exchangeCode implements the authorization_code grant. The code is
// consumed before any validation so that single use holds regardless of
// which later check fails; a second exchange of the same code always sees
// "absent".
func (s *Server) exchangeCode(ctx context.Context, req *TokenRequest) (*TokenResponse, *Error) {
	client, err := s.clients.Lookup(req.ClientID)
	if err != nil {
		return nil, ErrInvalidClient("unknown client")
	}
	if req.ClientSecret != "" && !client.ValidateSecret(req.ClientSecret) {
		return nil, ErrInvalidClient("client authentication failed")
	}

	if req.Code == "" {
		return nil, ErrInvalidRequest("code is required")
	}

	ac, err := s.codes.Consume(ctx, req.Code)
	if err != nil {
		s.log.ErrorContext(ctx, "code store unreachable during exchange", "err", err, "client_id", req.ClientID)
		return nil, ErrServerError("authorization code validation failed")
	}
	if ac == nil {
		// Absent, expired, or already consumed: same answer for all three.
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	}

	if ac.ClientID != client.ID {
		return nil, ErrInvalidGrant("authorization code was issued to a different client")
	}
	if ac.RedirectURI != req.RedirectURI {
		return nil, ErrInvalidGrant("redirect_uri does not match the authorization request")
	}

	if ac.CodeChallenge != "" {
		if err := VerifyPKCE(ac.CodeChallenge, ac.CodeChallengeMethod, req.CodeVerifier); err != nil {
			s.log.WarnContext(ctx, "PKCE verification failed", "client_id", client.ID)
			return nil, ErrInvalidGrant("PKCE verification failed")
		}
	} else if req.ClientSecret == "" {
		// Without PKCE the client must authenticate with its secret.
		return nil, ErrInvalidClient("client authentication required")
	}

	return s.issuePair(ctx, client.ID, ac.Scope, ac.UserID)
}

// refresh implements the refresh_token grant: verify the presented
// refresh JWT and rotate a fresh pair.
func (s *Server) refresh(ctx context.Context, req *TokenRequest) (*TokenResponse, *Error) {
	client, err := s.clients.Lookup(req.ClientID)
	if err != nil {
		return nil, ErrInvalidClient("unknown client")
	}
	if req.ClientSecret != "" && !client.ValidateSecret(req.ClientSecret) {
		return nil, ErrInvalidClient("client authentication failed")
	}

	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest("refresh_token is required")
	}

	claims, err := s.issuer.Verify(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidGrant("refresh token is invalid or expired")
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrInvalidGrant("presented token is not a refresh token")
	}
	if claims.ClientID != client.ID {
		return nil, ErrInvalidGrant("refresh token was issued to a different client")
	}

	return s.issuePair(ctx, client.ID, claims.Scope, claims.UserID)
}

func (s *Server) issuePair(ctx context.Context, clientID, scope, userID string) (*TokenResponse, *Error) {
	access, err := s.issuer.IssueAccessToken(clientID, scope, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "access token signing failed", "err", err, "client_id", clientID)
		return nil, ErrServerError("token issuance failed")
	}
	refresh, err := s.issuer.IssueRefreshToken(clientID, scope, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "refresh token signing failed", "err", err, "client_id", clientID)
		return nil, ErrServerError("token issuance failed")
	}

	s.log.InfoContext(ctx, "tokens issued", "client_id", clientID, "scope", scope)
	return &TokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenTTL / time.Second),
		RefreshToken: refresh,
		Scope:        scope,
	}, nil
}

// ClientInfoFor returns the static discovery document for a configured
// client id. It mutates nothing.
func (s *Server) ClientInfoFor(clientID string) (*ClientInfo, *Error) {
	client, err := s.clients.Lookup(clientID)
	if err != nil {
		return nil, ErrInvalidClient("unknown client")
	}
	return &ClientInfo{
		ClientID:                      client.ID,
		AuthorizationEndpoint:         s.baseURL + "/oauth/authorize",
		TokenEndpoint:                 s.baseURL + "/oauth/token",
		ScopesSupported:               ScopesSupported,
		ResponseTypesSupported:        []string{ResponseTypeCode},
		GrantTypesSupported:           []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken},
		CodeChallengeMethodsSupported: []string{CodeChallengeMethodS256, CodeChallengeMethodPlain},
	}, nil
}

// DefaultClientInfo returns the discovery document for the first
// configured client when exactly one exists, which is the common
// single-tenant deployment.
func (s *Server) DefaultClientInfo() (*ClientInfo, *Error) {
	if len(s.clients.clients) == 1 {
		for id := range s.clients.clients {
			return s.ClientInfoFor(id)
		}
	}
	return nil, ErrInvalidRequest("client_id is required")
}
