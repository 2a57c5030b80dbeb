// Package handoff implements the tab-scoped store that carries short-lived
// artifacts across page boundaries: the session credentials, the queue
// admission token and the booking snapshot. Nothing in this package is a
// source of truth; every value is a perishable copy with a TTL, and
// consumers must validate presence before relying on one.
package handoff

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key is absent or its TTL has lapsed.
// Absence is recoverable by design: the consuming view redirects to the
// step that produces the artifact instead of failing hard.
var ErrNotFound = errors.New("handoff: not found")

// Store is the backing key-value surface. The in-memory implementation is
// scoped to one process (the analogue of one browser tab); the Redis
// implementation shares artifacts between processes serving one terminal.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// memoryStore is the default Store: a mutex'd map with per-entry expiry.
// Expired entries are dropped lazily on read.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore returns an empty process-local Store.
func NewMemoryStore() Store {
	return &memoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *memoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
