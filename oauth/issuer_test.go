package oauth

import (
	"errors"
	"testing"
)

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", "", ""); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	issuer, err := NewIssuer("test-secret", "https://gateway.example.com", "")
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	token, err := issuer.IssueAccessToken("client-1", "read write", "user-42")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.ClientID != "client-1" {
		t.Errorf("ClientID = %q, want %q", claims.ClientID, "client-1")
	}
	if claims.Scope != "read write" {
		t.Errorf("Scope = %q, want %q", claims.Scope, "read write")
	}
	if claims.UserID != "user-42" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-42")
	}
	if claims.Type != "" {
		t.Errorf("access token carries type claim %q, want empty", claims.Type)
	}
	if claims.ID == "" {
		t.Error("expected a jti claim")
	}
	if aud, _ := claims.GetAudience(); len(aud) != 1 || aud[0] != DefaultAudience {
		t.Errorf("audience = %v, want [%q]", aud, DefaultAudience)
	}
}

func TestRefreshTokenCarriesTypeClaim(t *testing.T) {
	issuer, err := NewIssuer("test-secret", "", "")
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	token, err := issuer.IssueRefreshToken("client-1", "read", "")
	if err != nil {
		t.Fatalf("IssueRefreshToken failed: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Type != TokenTypeRefresh {
		t.Errorf("Type = %q, want %q", claims.Type, TokenTypeRefresh)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	issuer, err := NewIssuer("test-secret", "", "")
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	t.Run("different secret", func(t *testing.T) {
		other, err := NewIssuer("other-secret", "", "")
		if err != nil {
			t.Fatalf("NewIssuer failed: %v", err)
		}
		token, err := other.IssueAccessToken("client-1", "", "")
		if err != nil {
			t.Fatalf("IssueAccessToken failed: %v", err)
		}
		if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("different audience", func(t *testing.T) {
		other, err := NewIssuer("test-secret", "", "some-other-api")
		if err != nil {
			t.Fatalf("NewIssuer failed: %v", err)
		}
		token, err := other.IssueAccessToken("client-1", "", "")
		if err != nil {
			t.Fatalf("IssueAccessToken failed: %v", err)
		}
		if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}
