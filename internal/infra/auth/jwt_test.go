package auth

import (
	"errors"
	"testing"
	"time"

	"keepsafe/internal/domain"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	m, err := NewTokenManager("0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	token, err := m.Mint("user-1", "Olive", time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	userID, userName, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" || userName != "Olive" {
		t.Fatalf("got (%q, %q), want (user-1, Olive)", userID, userName)
	}
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	m, err := NewTokenManager("0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	other, err := NewTokenManager("fedcba9876543210", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}

	expired, err := m.Mint("user-1", "", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}
	foreign, err := other.Mint("user-1", "", time.Now())
	if err != nil {
		t.Fatalf("mint foreign: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"expired":      expired,
		"wrong secret": foreign,
	} {
		if _, _, err := m.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: got %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("", time.Hour); err == nil {
		t.Fatal("empty secret must be rejected")
	}
}

func TestMintRequiresUserID(t *testing.T) {
	m, err := NewTokenManager("0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	if _, err := m.Mint("", "Olive", time.Now()); err == nil {
		t.Fatal("empty user id must be rejected")
	}
}
