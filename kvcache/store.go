package kvcache

import (
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"time"
)

// entry wraps a cached value with its write time and lifetime.
// An entry is live iff now - Timestamp <= Duration.
type entry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"` // epoch ms at write
	Duration  int64           `json:"duration"`  // lifetime in ms, <= 0 meaning no expiry
}

// DefaultCleanupThreshold is the fraction of the storage quota above which a
// Set triggers eviction before writing.
const DefaultCleanupThreshold = 0.8

// Store is a TTL key-value cache on top of a Storage backend.
//
// Expiry is lazy: expired entries are deleted on the next Get, there is no
// background sweep. Writes are best effort; a write the backend keeps
// rejecting after eviction is dropped and logged, never surfaced to the
// caller. Two sequential Sets of the same key fully overwrite, merging of
// values happens above this layer.
type Store struct {
	storage   Storage
	namespace string
	threshold float64

	now func() time.Time // test hook
}

// NewStore creates a cache store over a backend. All cache entries live under
// the given namespace; other keys of the same backend (the transaction log,
// for one) are invisible to it and never evicted by it. An empty namespace
// defaults to "cache".
func NewStore(storage Storage, namespace string) *Store {
	if namespace == "" {
		namespace = "cache"
	}
	return &Store{
		storage:   storage,
		namespace: namespace,
		threshold: DefaultCleanupThreshold,
		now:       time.Now,
	}
}

func (s *Store) key(key string) string { return s.namespace + ":" + key }

// Set wraps value with the current timestamp and ttl and writes it to the
// backend, evicting old entries first when usage crosses the cleanup
// threshold. A ttl <= 0 stores the entry without expiry.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("kvcache: cannot marshal value for %q: %v", key, err)
		return
	}
	payload, err := json.Marshal(entry{
		Value:     raw,
		Timestamp: s.now().UnixMilli(),
		Duration:  ttl.Milliseconds(),
	})
	if err != nil {
		log.Printf("kvcache: cannot marshal entry for %q: %v", key, err)
		return
	}

	if max := s.storage.MaxBytes(); max > 0 {
		if float64(s.storage.UsedBytes()) >= s.threshold*float64(max) {
			s.Cleanup()
		}
	}

	err = s.storage.Set(s.key(key), string(payload))
	if errors.Is(err, ErrQuotaExceeded) {
		// Evict and retry once. If the backend still rejects the write the
		// cache simply stays without this entry.
		s.Cleanup()
		err = s.storage.Set(s.key(key), string(payload))
	}
	if err != nil {
		log.Printf("kvcache: dropping write of %q: %v", key, err)
	}
}

// Get reads the entry under key into dst and reports whether it was found
// live. Expired and corrupt entries are removed and reported as absent.
func (s *Store) Get(key string, dst any) bool {
	return s.get(key, dst, false)
}

// GetStale is Get without the TTL check: it returns expired-but-present
// entries too. It is the last-resort fallback when the remote source is rate
// limited and refreshing is impossible.
func (s *Store) GetStale(key string, dst any) bool {
	return s.get(key, dst, true)
}

func (s *Store) get(key string, dst any, stale bool) bool {
	raw, ok := s.storage.Get(s.key(key))
	if !ok {
		return false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.Timestamp == 0 {
		s.storage.Delete(s.key(key))
		return false
	}
	if !stale && s.expired(e) {
		s.storage.Delete(s.key(key))
		return false
	}
	if err := json.Unmarshal(e.Value, dst); err != nil {
		s.storage.Delete(s.key(key))
		return false
	}
	return true
}

func (s *Store) expired(e entry) bool {
	if e.Duration <= 0 {
		return false
	}
	return s.now().UnixMilli()-e.Timestamp > e.Duration
}

// Delete removes the entry under key.
func (s *Store) Delete(key string) { s.storage.Delete(s.key(key)) }

// Clear removes every cache entry of this store's namespace.
func (s *Store) Clear() {
	for _, k := range s.keys() {
		s.storage.Delete(k)
	}
}

// Len returns the number of cache entries currently stored, expired included.
func (s *Store) Len() int { return len(s.keys()) }

// keys returns the backend keys owned by this store.
func (s *Store) keys() []string {
	var keys []string
	for _, k := range s.storage.Keys() {
		if strings.HasPrefix(k, s.namespace+":") {
			keys = append(keys, k)
		}
	}
	return keys
}

// Cleanup evicts the oldest half of all cache entries, ordered by write
// timestamp. Entries that cannot be parsed rank as oldest and go first.
func (s *Store) Cleanup() {
	keys := s.keys()
	if len(keys) == 0 {
		return
	}

	type aged struct {
		key string
		ts  int64
	}
	entries := make([]aged, 0, len(keys))
	for _, k := range keys {
		ts := int64(-1) // corrupt records are treated as oldest
		if raw, ok := s.storage.Get(k); ok {
			var e entry
			if err := json.Unmarshal([]byte(raw), &e); err == nil && e.Timestamp > 0 {
				ts = e.Timestamp
			}
		}
		entries = append(entries, aged{key: k, ts: ts})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })

	evict := (len(entries) + 1) / 2
	for _, e := range entries[:evict] {
		s.storage.Delete(e.key)
	}
	log.Printf("kvcache: evicted %d of %d cache entries", evict, len(entries))
}
