package httpapi

import (
	"net/http"
	"strings"

	"cyimg.org/internal/apperr"
	"cyimg.org/internal/audit"
	"cyimg.org/internal/auth"
)

type userPageRequest struct {
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type createUserReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

type updateUserReq struct {
	ID       string  `json:"id"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	UserType *string `json:"user_type"`
}

// handleUserPage serves the admin user list. The page envelope mirrors
// what the management frontend's table component expects.
func (a *API) handleUserPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensureAdmin(w, r) {
		return
	}
	var req userPageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apperr.Validation(err.Error()))
		return
	}
	users, total, err := a.auth.ListUsers(r.Context(), auth.UserFilter{
		Username: req.Username,
		Email:    req.Email,
		Page:     req.Page,
		PerPage:  req.PerPage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, perPage := req.Page, req.PerPage
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}
	totalPages := (total + perPage - 1) / perPage
	if users == nil {
		users = []auth.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":        page,
		"per_page":    perPage,
		"total":       total,
		"total_pages": totalPages,
		"data": map[string]any{
			"pageData": users,
			"total":    total,
		},
	})
}

func (a *API) handleUser(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodPatch:
		a.updateUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodPatch)
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	var req createUserReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apperr.Validation(err.Error()))
		return
	}
	user, err := a.auth.CreateUser(r.Context(), req.Username, req.Email, req.Password, req.UserType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"target":    user.ID,
		"user_type": user.UserType,
	})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	var req updateUserReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apperr.Validation(err.Error()))
		return
	}
	callerToken, _ := auth.TokenFromContext(r.Context())
	err := a.auth.UpdateUser(r.Context(), auth.UpdateUserInput{
		ID:       req.ID,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		UserType: req.UserType,
	}, callerToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.update", map[string]any{
		"target":           req.ID,
		"password_changed": req.Password != nil,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "updated",
	})
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/user/"), "/")
	if id == "" || strings.Contains(id, "/") {
		notFoundJSON(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.ensureAdmin(w, r) {
		return
	}
	if err := a.auth.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{"target": id})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "deleted",
	})
}
