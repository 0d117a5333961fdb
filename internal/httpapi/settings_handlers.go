package httpapi

import (
	"net/http"

	"cyimg.org/internal/apperr"
	"cyimg.org/internal/audit"
)

type updateSettingsRequest struct {
	Settings map[string]string `json:"settings"`
}

// handleSettings serves the public site settings and, for admins, accepts
// updates. GET has no auth: the login page reads it first.
func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		values, err := a.settings.Values(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, values)
	case http.MethodPatch:
		if !a.ensureAdmin(w, r) {
			return
		}
		var req updateSettingsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, apperr.Validation(err.Error()))
			return
		}
		if err := a.settings.Update(r.Context(), req.Settings); err != nil {
			writeError(w, r, err)
			return
		}
		keys := make([]string, 0, len(req.Settings))
		for key := range req.Settings {
			keys = append(keys, key)
		}
		_ = audit.LogEvent(r.Context(), "settings.update", map[string]any{"keys": keys})
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "settings updated",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}
