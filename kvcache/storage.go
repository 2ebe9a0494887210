// Package kvcache implements the local cache layer: a TTL key-value store with
// quota-aware eviction on top of a plain string-keyed storage backend, and the
// deterministic key registry shared by everything that addresses it.
package kvcache

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by a Storage when a write would overflow its
// quota. The Store reacts with an evict-and-retry-once policy.
var ErrQuotaExceeded = errors.New("kvcache: storage quota exceeded")

// Storage is a synchronous string-keyed, string-valued store with a finite
// quota. The cache layer is solely responsible for serialization and TTL
// semantics on top of it.
type Storage interface {
	// Get returns the value stored under key, or false when absent.
	Get(key string) (string, bool)
	// Set stores value under key. It returns ErrQuotaExceeded when the write
	// would overflow the quota.
	Set(key, value string) error
	// Delete removes key. Removing an absent key is not an error.
	Delete(key string)
	// Keys returns all stored keys, in no particular order.
	Keys() []string
	// UsedBytes reports current usage, counting keys and values.
	UsedBytes() int64
	// MaxBytes reports the quota in bytes, 0 meaning unlimited.
	MaxBytes() int64
}

// MemStorage is an in-memory Storage with an optional byte quota. It is the
// backend used in tests and a reasonable default for one-shot commands.
type MemStorage struct {
	mu    sync.RWMutex
	items map[string]string
	used  int64
	max   int64
}

// NewMemStorage returns an empty in-memory storage. maxBytes of 0 means
// unlimited.
func NewMemStorage(maxBytes int64) *MemStorage {
	return &MemStorage{items: make(map[string]string), max: maxBytes}
}

func (m *MemStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *MemStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used + entrySize(key, value)
	if old, ok := m.items[key]; ok {
		next -= entrySize(key, old)
	}
	if m.max > 0 && next > m.max {
		return ErrQuotaExceeded
	}
	m.items[key] = value
	m.used = next
	return nil
}

func (m *MemStorage) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[key]; ok {
		m.used -= entrySize(key, old)
		delete(m.items, key)
	}
}

func (m *MemStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}

func (m *MemStorage) UsedBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

func (m *MemStorage) MaxBytes() int64 { return m.max }

func entrySize(key, value string) int64 { return int64(len(key) + len(value)) }
