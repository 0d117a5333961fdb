package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL applies when no expiration_time setting overrides it.
const DefaultTokenTTL = time.Hour

// ErrInvalidToken covers every verification failure: bad signature,
// malformed structure, or expiry. Collapsing them avoids an oracle for
// attackers probing which check rejected the token.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the signed payload embedded in every issued token.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into a request principal.
func (c *Claims) Principal() Principal {
	return Principal{
		ID:       c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Role:     c.UserType,
		Roles:    []string{c.UserType},
	}
}

// TokenService issues and verifies HS256 tokens. Tokens are never mutated
// after issuance; expiry is fixed and there is no sliding window.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// TokenOption configures TokenService.
type TokenOption func(*TokenService)

// WithTokenClock overrides the time source (useful for expiry tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService with the signing secret.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	s := &TokenService{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for the user with iat=now and exp=now+ttl.
func (s *TokenService) Issue(user *User, ttl time.Duration) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("auth: ttl must be greater than zero")
	}
	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		UserType: user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and that now is strictly before exp. A token
// presented exactly at its expiry instant is rejected.
func (s *TokenService) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.UserType) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Decode extracts claims without verifying the signature. Logout uses it to
// size the revocation entry to the token's remaining lifetime; the result
// must never be trusted for identity.
func (s *TokenService) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
