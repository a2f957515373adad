// Package oauth implements the gateway's OAuth 2.0 authorization server:
// the authorization-code grant with PKCE, single-use TTL-bound code
// storage, HS256 token issuance, and the /oauth/* HTTP endpoints.
//
// The server is its own issuer. Tokens are signed with a symmetric secret
// that must be configured before the process serves traffic; constructing
// an Issuer without one fails, and that failure is fatal at boot.
package oauth
