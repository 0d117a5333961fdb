// Package kv provides the shared key-value store with TTL semantics used by
// the token revocation list. Entries self-expire; callers never sweep.
package kv

import (
	"context"
	"time"
)

// Store is a flat key-value store where every entry carries its own TTL.
// Writes to distinct keys are always independent; a write to an existing key
// replaces value and TTL (last writer wins, same meaning for our callers).
type Store interface {
	// Get returns the value for key. The second result is false when the key
	// is absent or its TTL has elapsed.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put stores value under key for the given TTL. A non-positive TTL is
	// rejected: an entry that would be born expired signals a caller bug.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
