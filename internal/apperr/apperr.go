package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Type discriminates error categories across the service boundary.
type Type string

const (
	TypeValidation     Type = "VALIDATION"
	TypeAuthentication Type = "AUTHENTICATION"
	TypePermission     Type = "PERMISSION"
	TypeNotFound       Type = "NOT_FOUND"
	TypeInternal       Type = "INTERNAL"
)

// Error is the typed error carried from services to the HTTP boundary.
// Handlers never branch on message text; they branch on Type.
type Error struct {
	Type       Type           `json:"type"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is makes errors.Is match any two errors of the same Type, so services can
// compare against the package-level prototypes below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func newError(t Type, status int, msg string, metadata map[string]any) *Error {
	return &Error{
		Type:       t,
		Message:    msg,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
		Metadata:   metadata,
	}
}

// Validation reports malformed or missing input (HTTP 400).
func Validation(msg string) *Error {
	return newError(TypeValidation, http.StatusBadRequest, msg, nil)
}

// ValidationField reports a single failed field with the reason in metadata.
func ValidationField(field, reason string) *Error {
	return newError(TypeValidation, http.StatusBadRequest, "validation failed", map[string]any{
		"field":  field,
		"reason": reason,
	})
}

// Authentication reports a missing, invalid, expired or revoked credential
// (HTTP 401). Every authentication failure mode uses this one shape so the
// response does not reveal which check failed.
func Authentication(msg string) *Error {
	return newError(TypeAuthentication, http.StatusUnauthorized, msg, nil)
}

// InvalidCredentials is the login failure for a bad identifier or password.
func InvalidCredentials() *Error {
	return Authentication("invalid username or password")
}

// InvalidToken is the authenticate failure for any unusable bearer token.
func InvalidToken() *Error {
	return Authentication("invalid or expired token")
}

// Permission reports an authenticated caller without the required role
// (HTTP 403).
func Permission(msg string) *Error {
	return newError(TypePermission, http.StatusForbidden, msg, nil)
}

// NotFound reports an unknown entity or route (HTTP 404).
func NotFound(msg string) *Error {
	return newError(TypeNotFound, http.StatusNotFound, msg, nil)
}

// NotFoundEntity reports a missing entity with its identity in metadata.
func NotFoundEntity(entity string, id any) *Error {
	return newError(TypeNotFound, http.StatusNotFound, entity+" not found", map[string]any{
		"entity": entity,
		"id":     id,
	})
}

// Internal reports an unexpected failure (HTTP 500). Callers at the boundary
// must not copy wrapped detail into the response body.
func Internal(msg string) *Error {
	return newError(TypeInternal, http.StatusInternalServerError, msg, nil)
}

// From normalizes any error into an *Error. Unrecognized errors become a
// generic INTERNAL error with no leaked detail.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal server error")
}
