package store

import (
	"context"
	"sync"
)

// MemoryAdapter is an in-process Adapter. It backs tests and embedded use
// of the core library where no durability is wanted.
type MemoryAdapter struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ Adapter = (*MemoryAdapter)(nil)

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{values: make(map[string][]byte)}
}

func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	// Copy so callers can't mutate stored bytes.
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, true, nil
}

func (m *MemoryAdapter) Put(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = cp
	return nil
}

func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryAdapter) Close() error {
	return nil
}

// Seed stores a raw value under key, bypassing JSON encoding.
// Test helper for exercising malformed-payload handling.
func (m *MemoryAdapter) Seed(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}
