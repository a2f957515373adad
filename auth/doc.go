// Package auth resolves caller identity from transport-neutral headers
// before a request reaches the tool dispatcher.
//
// Exactly one credential is resolved per request, in a fixed precedence
// order: a vendor key (X-API-Key, format pk_X.sk_Y) wins over a bearer
// token. A malformed vendor key is rejected immediately without falling
// back to the bearer slot and without touching the network. Bearer tokens
// are JWTs verified against the same signing secret and audience the
// OAuth issuer uses.
//
// Failures carry no detail in the response; callers needing specifics
// must consult the server log.
package auth
