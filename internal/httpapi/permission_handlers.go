package httpapi

import (
	"net/http"

	"cyimg.org/internal/apperr"
	"cyimg.org/internal/auth"
	"cyimg.org/internal/permission"
)

// handlePermissions returns the menu tree resolved for the caller's role.
func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, permission.Resolve(principal.Role))
}

// handlePermissionRoutes returns the installable route table derived from
// the caller's tree.
func (a *API) handlePermissionRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	routes := permission.Routes(permission.Resolve(principal.Role))
	if routes == nil {
		routes = []permission.Route{}
	}
	writeJSON(w, http.StatusOK, routes)
}

// handlePermissionValidate answers whether a path belongs to the full menu
// catalog regardless of role. The client guard uses it to distinguish a
// forbidden page from a nonexistent one.
func (a *API) handlePermissionValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, r, apperr.ValidationField("path", "is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exists": permission.KnownMenuPath(path),
	})
}
