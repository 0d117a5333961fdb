package httpapi

import (
	"net/http"

	"cyimg.org/internal/apperr"
	"cyimg.org/internal/audit"
	"cyimg.org/internal/auth"
	"cyimg.org/internal/obs"
)

type loginRequest struct {
	// Email doubles as the username when it carries no "@".
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apperr.Validation(err.Error()))
		return
	}
	token, expiresAt, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.CountAuthFailure("login")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apperr.Validation(err.Error()))
		return
	}
	if err := a.auth.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(audit.WithRequestID(r.Context(), RequestIDFromContext(r.Context())),
		"user.register", map[string]any{"username": req.Username})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registered",
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, _ := auth.TokenFromContext(r.Context())
	if err := a.auth.Logout(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged out",
	})
}

func (a *API) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	user, err := a.auth.UserInfo(r.Context(), principal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auth.Principal{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.UserType,
		Roles:    []string{user.UserType},
	})
}

// handleProtected is a minimal authenticated echo used by smoke checks.
func (a *API) handleProtected(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "hello, " + principal.Username,
	})
}

// handleAdmin is the admin-only echo.
func (a *API) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAdmin(w, r) {
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "admin access granted",
		"user":    principal.Username,
	})
}
