package httpapi

import (
	"net/http"

	"cyimg.org/internal/apperr"
	"cyimg.org/internal/audit"
	"cyimg.org/internal/auth"
	"cyimg.org/internal/obs"
)

var publicPaths = []string{
	"/login",
	"/register",
	"/settings",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withAuth resolves the bearer token into a Principal for every
// non-public request. GET /settings stays public because the login page
// reads it before any session exists.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		// PATCH /settings is the one verb on a public path that needs a
		// credential; everything else on the public list passes through.
		adminSettings := r.URL.Path == "/settings" && r.Method == http.MethodPatch
		if isPublicPath(r.URL.Path) && !adminSettings {
			next.ServeHTTP(w, r)
			return
		}
		// Paths with no registered handler land on the catch-all; answer
		// 404 without demanding a credential first.
		if _, pattern := a.mux.Handler(r); pattern == "/" {
			notFoundJSON(w, r)
			return
		}

		principal, token, err := a.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			obs.CountAuthFailure("token")
			writeError(w, r, err)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		ctx = audit.WithRequestID(ctx, RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureAdmin guards the admin surface. It writes the 403 itself and
// reports whether the handler may proceed.
func (a *API) ensureAdmin(w http.ResponseWriter, r *http.Request) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Authentication("unauthorized"))
		return false
	}
	if !principal.IsAdmin() {
		writeError(w, r, apperr.Permission("access restricted to administrators"))
		return false
	}
	return true
}
