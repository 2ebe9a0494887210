package kvcache

import (
	"strings"
	"testing"
	"time"
)

// fakeClock returns a *Store over mem whose clock is controlled by the test.
func newTestStore(mem *MemStorage) (*Store, *time.Time) {
	s := NewStore(mem, "cache")
	now := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStore_TTL(t *testing.T) {
	mem := NewMemStorage(0)
	s, now := newTestStore(mem)

	s.Set("k", "v", 1000*time.Millisecond)

	testCases := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{name: "just written", elapsed: 0, wantHit: true},
		{name: "one ms before expiry", elapsed: 999 * time.Millisecond, wantHit: true},
		{name: "exactly at the duration", elapsed: 1000 * time.Millisecond, wantHit: true},
		{name: "past the duration", elapsed: 1001 * time.Millisecond, wantHit: false},
	}

	start := *now
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			*now = start.Add(tc.elapsed)
			var got string
			if hit := s.Get("k", &got); hit != tc.wantHit {
				t.Fatalf("Get after %v: hit = %v, want %v", tc.elapsed, hit, tc.wantHit)
			}
			if tc.wantHit && got != "v" {
				t.Errorf("Get returned %q, want %q", got, "v")
			}
		})
	}

	// The expired entry must be gone from the underlying storage too.
	if _, ok := mem.Get("cache:k"); ok {
		t.Error("expired entry still present in storage after Get")
	}
}

func TestStore_GetStale(t *testing.T) {
	s, now := newTestStore(NewMemStorage(0))

	s.Set("k", 42, time.Second)
	*now = now.Add(time.Hour)

	var got int
	if s.Get("k", &got) {
		t.Fatal("Get returned an expired entry")
	}

	// Get deleted the entry; write it again and expire it without reading.
	s.Set("k", 42, time.Second)
	*now = now.Add(time.Hour)

	if !s.GetStale("k", &got) || got != 42 {
		t.Errorf("GetStale = %v (value %d), want hit with 42", s.GetStale("k", &got), got)
	}
}

func TestStore_Overwrite(t *testing.T) {
	s, _ := newTestStore(NewMemStorage(0))

	s.Set("k", "first", time.Minute)
	s.Set("k", "second", time.Minute)

	var got string
	if !s.Get("k", &got) || got != "second" {
		t.Errorf("Get = %q, want %q (last write wins)", got, "second")
	}
}

func TestStore_CorruptEntry(t *testing.T) {
	mem := NewMemStorage(0)
	s, _ := newTestStore(mem)

	if err := mem.Set("cache:bad", "{not json"); err != nil {
		t.Fatal(err)
	}

	var got string
	if s.Get("bad", &got) {
		t.Fatal("Get returned a corrupt entry")
	}
	if _, ok := mem.Get("cache:bad"); ok {
		t.Error("corrupt entry still present in storage after Get")
	}
}

func TestStore_NoTTL(t *testing.T) {
	s, now := newTestStore(NewMemStorage(0))

	s.Set("k", "v", 0)
	*now = now.Add(10 * 365 * 24 * time.Hour)

	var got string
	if !s.Get("k", &got) {
		t.Error("entry without TTL expired")
	}
}

func TestStore_CleanupEvictsOldestHalf(t *testing.T) {
	mem := NewMemStorage(0)
	s, now := newTestStore(mem)

	// Ten entries, each written one minute after the previous one.
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, k := range keys {
		s.Set(k, strings.Repeat(k, 8), time.Hour)
		*now = now.Add(time.Minute)
	}

	s.Cleanup()

	if got := s.Len(); got != 5 {
		t.Fatalf("Len after cleanup = %d, want 5", got)
	}
	var v string
	for _, k := range keys[:5] {
		if s.Get(k, &v) {
			t.Errorf("old entry %q survived cleanup", k)
		}
	}
	for _, k := range keys[5:] {
		if !s.Get(k, &v) {
			t.Errorf("recent entry %q evicted by cleanup", k)
		}
	}
}

func TestStore_CleanupEvictsCorruptFirst(t *testing.T) {
	mem := NewMemStorage(0)
	s, now := newTestStore(mem)

	if err := mem.Set("cache:corrupt", "garbage"); err != nil {
		t.Fatal(err)
	}
	s.Set("good-old", 1, time.Hour)
	*now = now.Add(time.Minute)
	s.Set("good-new", 2, time.Hour)

	s.Cleanup() // 3 entries, evicts 2: the corrupt one and the oldest good one

	if _, ok := mem.Get("cache:corrupt"); ok {
		t.Error("corrupt entry survived cleanup")
	}
	var v int
	if s.Get("good-old", &v) {
		t.Error("oldest good entry survived cleanup before newer one")
	}
	if !s.Get("good-new", &v) {
		t.Error("newest entry evicted")
	}
}

func TestStore_EvictionUnderQuotaPressure(t *testing.T) {
	// A quota small enough that filling it forces the threshold cleanup.
	mem := NewMemStorage(2048)
	s, now := newTestStore(mem)

	i := 0
	for mem.UsedBytes() < int64(float64(mem.MaxBytes())*DefaultCleanupThreshold) {
		s.Set(key(i), strings.Repeat("x", 64), time.Hour)
		*now = now.Add(time.Second)
		i++
	}
	before := s.Len()

	s.Set("final", "value", time.Hour)

	if got := s.Len(); got > before/2+1 {
		t.Errorf("Len after pressure Set = %d, want at most %d", got, before/2+1)
	}
	var v string
	if !s.Get("final", &v) || v != "value" {
		t.Errorf("newly set entry not retrievable after cleanup, got %q", v)
	}
}

func TestStore_DropWriteWhenStillOverQuota(t *testing.T) {
	// Quota too small for the value even after eviction: the write is dropped
	// without error.
	mem := NewMemStorage(64)
	s, _ := newTestStore(mem)

	s.Set("huge", strings.Repeat("x", 1024), time.Hour)

	var v string
	if s.Get("huge", &v) {
		t.Error("oversized entry unexpectedly stored")
	}
}

func TestStore_NamespaceIsolation(t *testing.T) {
	mem := NewMemStorage(0)
	s, _ := newTestStore(mem)

	if err := mem.Set(TransactionLogKey, `[]`); err != nil {
		t.Fatal(err)
	}
	s.Set("k", "v", time.Hour)

	s.Clear()

	if _, ok := mem.Get(TransactionLogKey); !ok {
		t.Error("Clear removed a key outside the cache namespace")
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len after Clear = %d, want 0", got)
	}
}

func key(i int) string {
	return "k" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
}
