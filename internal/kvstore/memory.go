package kvstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryKVStore is a process local store. Useful for tests and single
// instance deployments.
type MemoryKVStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	prefix  string
	closed  bool

	// Now is the clock used for expiry.
	Now func() time.Time
}

// NewMemoryKVStore creates an empty store. Keys are stored under prefix.
func NewMemoryKVStore(prefix string) *MemoryKVStore {
	return &MemoryKVStore{
		entries: make(map[string]memoryEntry),
		prefix:  prefix,
		Now:     time.Now,
	}
}

func (m *MemoryKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, core.ErrStoreClosed
	}

	e, ok := m.entries[m.prefix+key]
	if !ok || e.expired(m.Now()) {
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryKVStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrStoreClosed
	}
	m.put(key, value, ttl)
	return nil
}

func (m *MemoryKVStore) put(key string, value []byte, ttl time.Duration) {
	e := memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = m.Now().Add(ttl)
	}
	m.entries[m.prefix+key] = e
}

func (m *MemoryKVStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrStoreClosed
	}
	delete(m.entries, m.prefix+key)
	return nil
}

func (m *MemoryKVStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, core.ErrStoreClosed
	}
	e, ok := m.entries[m.prefix+key]
	return ok && !e.expired(m.Now()), nil
}

func (m *MemoryKVStore) BatchSet(_ context.Context, items map[string][]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrStoreClosed
	}
	for key, value := range items {
		m.put(key, value, ttl)
	}
	return nil
}

// Len returns the number of live entries.
func (m *MemoryKVStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.Now()
	n := 0
	for _, e := range m.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (m *MemoryKVStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MemoryKVStoreFactory creates memory stores.
type MemoryKVStoreFactory struct{}

func (f *MemoryKVStoreFactory) Type() string { return "memory" }

func (f *MemoryKVStoreFactory) Validate(config *registry.InternalKVStoreConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if config.TTL < 0 {
		return fmt.Errorf("ttl must be non-negative, got: %v", config.TTL)
	}
	return nil
}

func (f *MemoryKVStoreFactory) Create(_ context.Context, config registry.InternalKVStoreConfig) (core.KVStore, error) {
	return NewMemoryKVStore(config.KeyPrefix), nil
}

func init() {
	RegisterFactory(&MemoryKVStoreFactory{})
}
