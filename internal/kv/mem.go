package kv

import (
	"context"
	"errors"
	"sync"
	"time"
)

const janitorInterval = time.Minute

type memEntry struct {
	value     string
	expiresAt time.Time
}

// Mem is an in-process Store. Expired entries are invisible to Get
// immediately and physically removed by a background janitor.
type Mem struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// MemOption configures Mem.
type MemOption func(*Mem)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) MemOption {
	return func(m *Mem) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewMem returns a ready Store backed by process memory.
func NewMem(opts ...MemOption) *Mem {
	m := &Mem{
		entries: make(map[string]memEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor()
	return m
}

// Close stops the janitor goroutine.
func (m *Mem) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Mem) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *Mem) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("kv: ttl must be positive")
	}
	m.mu.Lock()
	m.entries[key] = memEntry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Mem) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Mem) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := m.now()
			m.mu.Lock()
			for k, e := range m.entries {
				if !now.Before(e.expiresAt) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
