package httpapi

import (
	"context"
	"net/http"
	"testing"

	"cyimg.org/internal/auth"
	"cyimg.org/internal/guard"
)

func TestPublicPathsSkipAuth(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz", "/v1/info", "/settings"} {
		if !isPublicPath(path) {
			t.Errorf("%s should be public", path)
		}
	}
	for _, path := range []string{"/userinfo", "/protected", "/admin", "/user/page", "/permissions"} {
		if isPublicPath(path) {
			t.Errorf("%s should require auth", path)
		}
	}
}

func TestWrongMethodOnPublicPathIs405NotAuth(t *testing.T) {
	ta := newTestAPI(t)

	// A bad verb on a public route must answer 405 like everywhere else,
	// not demand a credential first.
	code, env := ta.do(t, http.MethodPatch, "/login", "", nil)
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH /login: status %d (%v)", code, env)
	}
	code, env = ta.do(t, http.MethodDelete, "/register", "", nil)
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /register: status %d (%v)", code, env)
	}

	// PATCH /settings stays the credentialed exception.
	code, env = ta.do(t, http.MethodPatch, "/settings", "", map[string]any{
		"settings": map[string]string{"enable_register": "false"},
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("PATCH /settings without token: status %d (%v)", code, env)
	}
}

func TestUnauthorizedCarriesWWWAuthenticate(t *testing.T) {
	ta := newTestAPI(t)
	resp, err := http.Get(ta.server.URL + "/userinfo")
	if err != nil {
		t.Fatalf("GET /userinfo: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatal("missing WWW-Authenticate header")
	}
}

// TestGuardAgainstLiveServer drives the navigation guard through the real
// HTTP surface instead of a fake client.
func TestGuardAgainstLiveServer(t *testing.T) {
	ta := newTestAPI(t)
	ta.seedUser(t, "ana", "ana@example.com", "s3cret!", auth.RoleUser)
	token := ta.login(t, "ana@example.com", "s3cret!")
	ctx := context.Background()

	client := guard.NewHTTPClient(ta.server.URL)
	g := guard.New(client)

	// Unauthenticated: guarded page bounces to login.
	if d := g.Evaluate(ctx, "/pms/picmanage"); d.Kind != guard.DecisionRedirect || d.To != guard.LoginPath {
		t.Fatalf("unauthenticated: %+v", d)
	}

	client.SetToken(token)
	g.SetToken(token)

	// First guarded navigation loads the session and replays.
	d := g.Evaluate(ctx, "/pms/picmanage")
	if d.Kind != guard.DecisionRedirect || !d.Replace {
		t.Fatalf("first navigation: %+v", d)
	}
	if d := g.Evaluate(ctx, "/pms/picmanage"); d.Kind != guard.DecisionAllow {
		t.Fatalf("replay: %+v", d)
	}

	// Admin page is known but off-limits for a plain user; a made-up page
	// is a 404.
	if d := g.Evaluate(ctx, "/pms/user"); d.Kind != guard.DecisionForbidden {
		t.Fatalf("admin page: %+v", d)
	}
	if d := g.Evaluate(ctx, "/made/up"); d.Kind != guard.DecisionNotFound {
		t.Fatalf("unknown page: %+v", d)
	}
}
