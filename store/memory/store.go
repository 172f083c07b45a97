// Package memory implements queue.Store entirely in memory. Intended
// for unit testing and development; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/queue"
)

var _ queue.Store = (*Store)(nil)

// Store is an in-memory snapshot store. Safe for concurrent access.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Load returns the snapshot under storageKey, or (nil, nil) if the key
// has never been written.
func (m *Store) Load(_ context.Context, storageKey string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, reliq.ErrStoreClosed
	}
	data, ok := m.data[storageKey]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Save replaces the snapshot under storageKey.
func (m *Store) Save(_ context.Context, storageKey string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return reliq.ErrStoreClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[storageKey] = cp
	return nil
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close marks the store closed; further operations fail.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
