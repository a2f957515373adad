package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// HeaderVendorKey is the header carrying a vendor key credential.
const HeaderVendorKey = "X-Api-Key"

// ErrMalformedVendorKey indicates the presented key does not have the
// pk_X.sk_Y shape. It is detected before any network or store access.
var ErrMalformedVendorKey = errors.New("malformed vendor key")

// VendorKeyVerifier validates a well-formed vendor key with the upstream
// service that owns key material. It is an external collaborator; the
// gateway only defines the contract.
type VendorKeyVerifier interface {
	// VerifyVendorKey returns the key owner's subject identifier, or an
	// error when the key is unknown or revoked.
	VerifyVendorKey(ctx context.Context, key string) (subject string, err error)
}

// ParseVendorKey checks the pk_X.sk_Y shape without validating the key
// material. Both segments must be non-empty.
func ParseVendorKey(key string) (publicPart string, err error) {
	pk, sk, ok := strings.Cut(key, ".")
	if !ok {
		return "", ErrMalformedVendorKey
	}
	if !strings.HasPrefix(pk, "pk_") || len(pk) <= len("pk_") {
		return "", ErrMalformedVendorKey
	}
	if !strings.HasPrefix(sk, "sk_") || len(sk) <= len("sk_") {
		return "", ErrMalformedVendorKey
	}
	return pk, nil
}

// StaticVendorKeys is a VendorKeyVerifier backed by a fixed key table,
// used for tests and single-tenant deployments without an upstream key
// service.
type StaticVendorKeys map[string]string // key -> subject

func (s StaticVendorKeys) VerifyVendorKey(_ context.Context, key string) (string, error) {
	subject, ok := s[key]
	if !ok {
		return "", fmt.Errorf("vendor key not recognized")
	}
	return subject, nil
}
