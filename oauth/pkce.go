package oauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

// PKCE code challenge methods (RFC 7636).
const (
	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// ErrPKCEVerification is returned when a verifier does not match the
// stored challenge.
var ErrPKCEVerification = errors.New("oauth: PKCE verification failed")

// ComputeS256Challenge derives the S256 challenge for a verifier:
// base64url(SHA-256(verifier)), unpadded.
func ComputeS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ValidateChallengeMethod rejects methods other than S256 and plain.
func ValidateChallengeMethod(method string) error {
	switch method {
	case CodeChallengeMethodS256, CodeChallengeMethodPlain:
		return nil
	default:
		return fmt.Errorf("unsupported code_challenge_method %q", method)
	}
}

// VerifyPKCE checks verifier against the stored challenge using the
// stored method. Comparisons are constant-time.
func VerifyPKCE(challenge, method, verifier string) error {
	if verifier == "" {
		return fmt.Errorf("%w: code_verifier is required", ErrPKCEVerification)
	}

	var derived string
	switch method {
	case CodeChallengeMethodPlain:
		derived = verifier
	case CodeChallengeMethodS256, "":
		// S256 is the default when the stored method is absent.
		derived = ComputeS256Challenge(verifier)
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrPKCEVerification, method)
	}

	if subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) != 1 {
		return ErrPKCEVerification
	}
	return nil
}
