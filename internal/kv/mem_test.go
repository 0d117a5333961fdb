package kv

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemPutGetAndExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMem(WithClock(clock))
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "revoke:abc", "1", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	value, ok, err := store.Get(ctx, "revoke:abc")
	if err != nil || !ok || value != "1" {
		t.Fatalf("Get = (%q, %v, %v), want (\"1\", true, nil)", value, ok, err)
	}

	// Exactly at the expiry instant the entry must be gone.
	now = now.Add(time.Minute)
	if _, ok, _ := store.Get(ctx, "revoke:abc"); ok {
		t.Fatalf("expected entry to be expired at its deadline")
	}
}

func TestMemRejectsNonPositiveTTL(t *testing.T) {
	store := NewMem()
	defer store.Close()

	if err := store.Put(context.Background(), "k", "v", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	if err := store.Put(context.Background(), "k", "v", -time.Second); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestMemDeleteIsIdempotent(t *testing.T) {
	store := NewMem()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected key to be gone")
	}
}

func TestMemConcurrentWritersDistinctKeys(t *testing.T) {
	store := NewMem()
	defer store.Close()
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("revoke:token-%d", i)
			if err := store.Put(ctx, key, "1", time.Minute); err != nil {
				t.Errorf("Put %s: %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	// No write may shadow another: every key must still resolve.
	for i := 0; i < writers; i++ {
		key := fmt.Sprintf("revoke:token-%d", i)
		if _, ok, _ := store.Get(ctx, key); !ok {
			t.Fatalf("lost entry for %s", key)
		}
	}
}
