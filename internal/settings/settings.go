// Package settings exposes the typed site settings stored in the relational
// database. The auth core consults three keys: enable_register,
// expiration_time (token lifetime in hours) and upload_require_auth (which
// narrows the client allow-list).
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"cyimg.org/internal/apperr"
)

// Keys consumed by the auth core.
const (
	KeyEnableRegister    = "enable_register"
	KeyExpirationTime    = "expiration_time"
	KeyUploadRequireAuth = "upload_require_auth"
)

var ErrNotFound = errors.New("settings: not found")

// Setting is one stored row. ValueType drives coercion: boolean, integer,
// json, or string (the default).
type Setting struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	ValueType string `json:"value_type"`
}

// Store describes settings persistence. Implementations live in
// internal/store.
type Store interface {
	AllSettings(ctx context.Context) ([]Setting, error)
	GetSetting(ctx context.Context, key string) (Setting, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Service reads and writes typed settings.
type Service struct {
	store Store
}

// NewService wraps a settings store.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("settings: store is required")
	}
	return &Service{store: store}, nil
}

// Values returns every setting coerced to its declared type.
func (s *Service) Values(ctx context.Context) (map[string]any, error) {
	rows, err := s.store.AllSettings(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("no settings configured")
	}
	values := make(map[string]any, len(rows))
	for _, row := range rows {
		values[row.Key] = coerce(row)
	}
	return values, nil
}

// Update writes raw values for existing keys. Unknown keys are rejected so a
// typo cannot silently create an unread setting.
func (s *Service) Update(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return apperr.Validation("no settings to update")
	}
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			return apperr.Validation("empty setting key")
		}
		if _, err := s.store.GetSetting(ctx, key); err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperr.NotFoundEntity("setting", key)
			}
			return err
		}
		if err := s.store.SetSetting(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// RegistrationEnabled reports whether self-service registration is on.
// A missing key means registration stays closed.
func (s *Service) RegistrationEnabled(ctx context.Context) (bool, error) {
	row, err := s.store.GetSetting(ctx, KeyEnableRegister)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return row.Value == "true", nil
}

// TokenTTL returns the configured token lifetime. The stored value is whole
// hours; ok is false when the key is absent or unusable.
func (s *Service) TokenTTL(ctx context.Context) (time.Duration, bool, error) {
	row, err := s.store.GetSetting(ctx, KeyExpirationTime)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	hours, err := strconv.Atoi(strings.TrimSpace(row.Value))
	if err != nil || hours <= 0 {
		return 0, false, nil
	}
	return time.Duration(hours) * time.Hour, true, nil
}

// UploadRequireAuth reports whether anonymous upload pages are disabled,
// which narrows the client allow-list to {/login, /404}.
func (s *Service) UploadRequireAuth(ctx context.Context) (bool, error) {
	row, err := s.store.GetSetting(ctx, KeyUploadRequireAuth)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return row.Value == "true", nil
}

func coerce(row Setting) any {
	switch row.ValueType {
	case "boolean":
		return row.Value == "true"
	case "integer":
		n, err := strconv.Atoi(strings.TrimSpace(row.Value))
		if err != nil {
			return row.Value
		}
		return n
	case "json":
		var v any
		if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
			return row.Value
		}
		return v
	default:
		return row.Value
	}
}
