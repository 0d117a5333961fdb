package auth

import (
	"context"
	"strconv"
	"time"

	"cyimg.org/internal/kv"
	"cyimg.org/internal/obs"
)

// revocationPrefix namespaces revocation entries inside the shared store.
// One key per token: concurrent revocations of distinct tokens never
// contend, and re-revoking the same token is idempotent.
const revocationPrefix = "revoke:"

// RevocationList tracks explicitly invalidated tokens until their natural
// expiry. Entries carry a TTL equal to the token's remaining lifetime, so
// the store garbage-collects them without any sweep of ours.
type RevocationList struct {
	store kv.Store
	now   func() time.Time
}

// RevocationOption configures RevocationList.
type RevocationOption func(*RevocationList)

// WithRevocationClock overrides the time source.
func WithRevocationClock(fn func() time.Time) RevocationOption {
	return func(l *RevocationList) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewRevocationList wraps the shared KV store.
func NewRevocationList(store kv.Store, opts ...RevocationOption) *RevocationList {
	l := &RevocationList{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Revoke marks the token unusable until expiresAt. A token that has already
// expired needs no entry.
func (l *RevocationList) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	remaining := expiresAt.Sub(l.now())
	if remaining <= 0 {
		return nil
	}
	marker := strconv.FormatInt(expiresAt.Unix(), 10)
	if err := l.store.Put(ctx, revocationPrefix+token, marker, remaining); err != nil {
		return err
	}
	obs.CountTokenRevoked()
	return nil
}

// IsRevoked reports whether the token has an active revocation entry. It is
// consulted before any signature-valid token is trusted.
func (l *RevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, ok, err := l.store.Get(ctx, revocationPrefix+token)
	if err != nil {
		return false, err
	}
	return ok, nil
}
