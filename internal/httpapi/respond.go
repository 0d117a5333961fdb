package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cyimg.org/internal/apperr"
)

// envelope is the uniform response shape: data carries the payload on
// success and an error object on failure.
type envelope struct {
	Success    bool  `json:"success"`
	StatusCode int   `json:"statusCode"`
	Timestamp  int64 `json:"timestamp"`
	Data       any   `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:    code < http.StatusBadRequest,
		StatusCode: code,
		Timestamp:  time.Now().UnixMilli(),
		Data:       v,
	})
}

// writeError normalizes any error into the typed envelope. Unknown errors
// surface as INTERNAL with no detail leaked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.StatusCode == http.StatusUnauthorized || appErr.StatusCode == http.StatusForbidden {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	writeJSON(w, appErr.StatusCode, map[string]any{"error": appErr})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return errors.New("malformed JSON body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, &apperr.Error{
		Type:       apperr.TypeValidation,
		Message:    "method not allowed",
		StatusCode: http.StatusMethodNotAllowed,
		Timestamp:  time.Now().UTC(),
	})
}

func notFoundJSON(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.NotFound("resource not found"))
}
