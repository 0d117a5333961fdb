package auth

import "context"

type principalContextKey struct{}
type tokenContextKey struct{}

// ContextWithPrincipal attaches the identity resolved by Authenticate for
// the remainder of the request. The stored value is a claims snapshot: it
// never updates mid-request, even if the user row changes underneath it.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// ContextWithToken keeps the verified raw bearer token alongside the
// principal so handlers that revoke it (logout, admin password change) do
// not have to re-parse the Authorization header.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
// The revocation store is keyed by this exact string.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
