package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"cyimg.org/internal/apperr"
	"cyimg.org/internal/ids"
)

// SettingsSource exposes the site settings the auth flow consults. The
// settings service implements it; tests swap in fixtures.
type SettingsSource interface {
	// RegistrationEnabled gates POST /register.
	RegistrationEnabled(ctx context.Context) (bool, error)
	// TokenTTL returns the deployment override for issued-token lifetime.
	// ok is false when no override is configured.
	TokenTTL(ctx context.Context) (ttl time.Duration, ok bool, err error)
}

// Service is the single gate every protected operation passes through. It
// combines the credential cipher, token service and revocation list, and it
// owns the login/register/logout lifecycle.
type Service struct {
	users       UserStore
	tokens      *TokenService
	cipher      *Cipher
	revocations *RevocationList
	settings    SettingsSource
	defaultTTL  time.Duration
	now         func() time.Time
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithSettings wires the settings source consulted at login and register.
func WithSettings(src SettingsSource) ServiceOption {
	return func(s *Service) { s.settings = src }
}

// WithDefaultTTL overrides the fallback token lifetime.
func WithDefaultTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the auth subsystem together.
func NewService(users UserStore, tokens *TokenService, cipher *Cipher, revocations *RevocationList, opts ...ServiceOption) (*Service, error) {
	if users == nil || tokens == nil || cipher == nil || revocations == nil {
		return nil, errors.New("auth: users, tokens, cipher and revocations are required")
	}
	s := &Service{
		users:       users,
		tokens:      tokens,
		cipher:      cipher,
		revocations: revocations,
		defaultTTL:  DefaultTokenTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const scheme = "Bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(scheme):])
	if token == "" {
		return "", false
	}
	return token, true
}

// Login verifies transport-ciphered credentials and issues a fresh token.
// The identifier is an email when it contains '@', a username otherwise.
func (s *Service) Login(ctx context.Context, identifier, cipherPassword string) (string, time.Time, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || cipherPassword == "" {
		return "", time.Time{}, apperr.Validation("missing required fields")
	}
	password, err := s.cipher.Decrypt(cipherPassword)
	if err != nil {
		// A garbled wire password is indistinguishable from a wrong one.
		return "", time.Time{}, apperr.InvalidCredentials()
	}
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, apperr.InvalidCredentials()
		}
		return "", time.Time{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return "", time.Time{}, apperr.InvalidCredentials()
	}
	token, expiresAt, err := s.tokens.Issue(user, s.tokenTTL(ctx))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Register creates a self-service account with the user role. It fails when
// registration is administratively disabled or the identifiers collide.
func (s *Service) Register(ctx context.Context, username, email, cipherPassword string) error {
	if s.settings != nil {
		enabled, err := s.settings.RegistrationEnabled(ctx)
		if err != nil {
			return err
		}
		if !enabled {
			return apperr.Validation("user registration is disabled, contact an administrator")
		}
	}
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || cipherPassword == "" {
		return apperr.Validation("missing required fields")
	}
	password, err := s.cipher.Decrypt(cipherPassword)
	if err != nil {
		return apperr.Validation("malformed password payload")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user := &User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		UserType:     RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return apperr.Validation("user already exists")
		}
		return err
	}
	return nil
}

// Authenticate resolves the bearer credential in the Authorization header
// into a Principal. Claims are trusted as of issuance; the user record is
// not re-read. Every failure mode (missing header, revoked, bad signature,
// malformed, expired) collapses into one authentication error.
func (s *Service) Authenticate(ctx context.Context, authorization string) (Principal, string, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return Principal{}, "", apperr.Authentication("unauthorized")
	}
	revoked, err := s.revocations.IsRevoked(ctx, token)
	if err != nil {
		return Principal{}, "", err
	}
	if revoked {
		return Principal{}, "", apperr.Authentication("unauthorized")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Principal{}, "", apperr.Authentication("unauthorized")
	}
	return claims.Principal(), token, nil
}

// EnsureAdmin authenticates and then requires the admin role.
func (s *Service) EnsureAdmin(ctx context.Context, authorization string) (Principal, string, error) {
	principal, token, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return Principal{}, "", err
	}
	if !principal.IsAdmin() {
		return Principal{}, "", apperr.Permission("access restricted to administrators")
	}
	return principal, token, nil
}

// Logout moves the token into the revocation list for its remaining
// lifetime. The token does not need to verify: a client holding an expired
// or garbled token simply has nothing left to revoke.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Authentication("unauthorized")
	}
	expiresAt := s.now().Add(s.defaultTTL)
	if claims, err := s.tokens.Decode(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.revocations.Revoke(ctx, token, expiresAt)
}

// UserInfo returns the stored record behind a principal.
func (s *Service) UserInfo(ctx context.Context, principal Principal) (*User, error) {
	user, err := s.users.FindByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFoundEntity("user", principal.ID)
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns one page of accounts plus the unfiltered total.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 10
	}
	return s.users.List(ctx, filter)
}

// CreateUser provisions an account on behalf of an administrator.
func (s *Service) CreateUser(ctx context.Context, username, email, cipherPassword, userType string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || cipherPassword == "" {
		return nil, apperr.Validation("missing required fields")
	}
	if userType == "" {
		userType = RoleUser
	}
	if userType != RoleUser && userType != RoleAdmin {
		return nil, apperr.ValidationField("user_type", "must be admin or user")
	}
	password, err := s.cipher.Decrypt(cipherPassword)
	if err != nil {
		return nil, apperr.Validation("malformed password payload")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		UserType:     userType,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, apperr.Validation("user already exists")
		}
		return nil, err
	}
	return user, nil
}

// UpdateUserInput is the admin-facing partial update. Password, when set,
// arrives in transport-ciphered form.
type UpdateUserInput struct {
	ID       string
	Username *string
	Email    *string
	Password *string
	UserType *string
}

// UpdateUser applies a partial update. When the password of an admin account
// changes, the caller's own bearer token is revoked for its remaining
// lifetime so the stale credential cannot outlive the change.
func (s *Service) UpdateUser(ctx context.Context, input UpdateUserInput, callerToken string) error {
	if strings.TrimSpace(input.ID) == "" {
		return apperr.Validation("missing user id")
	}
	if input.Username == nil && input.Email == nil && input.Password == nil && input.UserType == nil {
		return apperr.Validation("no fields to update")
	}
	target, err := s.users.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundEntity("user", input.ID)
		}
		return err
	}

	upd := UserUpdate{Username: input.Username, Email: input.Email}
	if input.UserType != nil {
		ut := strings.TrimSpace(*input.UserType)
		if ut != RoleUser && ut != RoleAdmin {
			return apperr.ValidationField("user_type", "must be admin or user")
		}
		upd.UserType = &ut
	}
	passwordChanged := false
	if input.Password != nil {
		password, err := s.cipher.Decrypt(*input.Password)
		if err != nil {
			return apperr.Validation("malformed password payload")
		}
		hash, err := HashPassword(password)
		if err != nil {
			return err
		}
		upd.PasswordHash = &hash
		passwordChanged = true
	}
	if err := s.users.Update(ctx, input.ID, upd); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundEntity("user", input.ID)
		}
		if errors.Is(err, ErrAlreadyExists) {
			return apperr.Validation("user already exists")
		}
		return err
	}

	if passwordChanged && target.UserType == RoleAdmin && callerToken != "" {
		return s.Logout(ctx, callerToken)
	}
	return nil
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("missing user id")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundEntity("user", id)
		}
		return err
	}
	return nil
}

func (s *Service) tokenTTL(ctx context.Context) time.Duration {
	if s.settings != nil {
		if ttl, ok, err := s.settings.TokenTTL(ctx); err == nil && ok {
			return ttl
		}
	}
	return s.defaultTTL
}
