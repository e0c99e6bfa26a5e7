// Package store defines the persistence contract used by the world to keep its
// layout across restarts, together with the snapshot codec and an in-memory
// implementation.
package store

import (
	"context"
	"errors"
	"sync"
)

// DefaultKey is the key the layout is stored under unless configured otherwise.
const DefaultKey = "GAME_OF_LIFE:WORLD:LAYOUT"

// ErrNotFound reports that no value exists for the requested key.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable key-value store holding serialized snapshots.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)

// Memory keeps values in process memory. It is used by tests and when no
// external store is configured.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Load returns a copy of the stored value.
func (m *Memory) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Save stores a copy of data.
func (m *Memory) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
