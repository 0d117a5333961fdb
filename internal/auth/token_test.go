package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testUser() *User {
	return &User{
		ID:       "01J3TESTUSER",
		Username: "alice",
		Email:    "alice@example.com",
		UserType: RoleAdmin,
	}
}

func TestIssueAndVerifyPreservesClaims(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, expiresAt, err := svc.Issue(testUser(), 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected compact three-segment token, got %q", token)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "01J3TESTUSER" || claims.Username != "alice" ||
		claims.Email != "alice@example.com" || claims.UserType != RoleAdmin {
		t.Fatalf("claims do not match issued values: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}

	principal := claims.Principal()
	if principal.ID != claims.UserID || principal.Role != RoleAdmin || !principal.IsAdmin() {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	svc, err := NewTokenService("test-secret", WithTokenClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, expiresAt, err := svc.Issue(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = expiresAt.Add(-time.Second)
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("token must verify just before expiry: %v", err)
	}

	// Exactly at expiresAt the token is already invalid.
	now = expiresAt
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at the expiry instant, got %v", err)
	}

	now = expiresAt.Add(time.Second)
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestVerifyRejectsTamperedAndForeignTokens(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	other, err := NewTokenService("another-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := svc.Issue(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch to fail")
	}
	if _, err := svc.Verify(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected tampered token to fail")
	}
	for _, malformed := range []string{"", "abc", "a.b", "a.b.c.d"} {
		if _, err := svc.Verify(malformed); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected malformed token %q to fail", malformed)
		}
	}
}

func TestDecodeReadsExpiryWithoutVerification(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, expiresAt, err := svc.Issue(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(expiresAt.Truncate(time.Second)) {
		t.Fatalf("decoded exp %v, want %v", claims.ExpiresAt.Time, expiresAt.Truncate(time.Second))
	}
}
