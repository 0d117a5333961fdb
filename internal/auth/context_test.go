package auth

import (
	"context"
	"testing"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatalf("empty context must not carry a principal")
	}

	principal := Principal{ID: "u1", Username: "alice", Role: RoleAdmin}
	ctx = ContextWithPrincipal(ctx, principal)
	got, ok := PrincipalFromContext(ctx)
	if !ok || got.ID != "u1" || !got.IsAdmin() {
		t.Fatalf("unexpected principal: %+v ok=%v", got, ok)
	}
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := TokenFromContext(ctx); ok {
		t.Fatalf("empty context must not carry a token")
	}
	if ctx2 := ContextWithToken(ctx, ""); ctx2 != ctx {
		t.Fatalf("empty token must not allocate a context value")
	}

	ctx = ContextWithToken(ctx, "tok-123")
	got, ok := TokenFromContext(ctx)
	if !ok || got != "tok-123" {
		t.Fatalf("unexpected token: %q ok=%v", got, ok)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"":                 {"", false},
		"Bearer":           {"", false},
		"Bearer ":          {"", false},
		"Basic abc":        {"", false},
		"Bearer tok":       {"tok", true},
		"bearer tok":       {"tok", true},
		"  Bearer  tok  ":  {"tok", true},
		"Bearer a.b.c":     {"a.b.c", true},
	}
	for header, want := range cases {
		token, ok := BearerToken(header)
		if ok != want.ok || token != want.token {
			t.Fatalf("BearerToken(%q) = (%q, %v), want (%q, %v)", header, token, ok, want.token, want.ok)
		}
	}
}
