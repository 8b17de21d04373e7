package cache

import (
	"testing"
	"time"
)

func newMemoryTestCache(t *testing.T, size int, ttl time.Duration, onEvict EvictCallback) Cache {
	t.Helper()
	c, err := New("memory", ProviderConfig{Size: size, TTL: ttl, OnEvict: onEvict})
	if err != nil {
		t.Fatalf("create memory cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_MissThenHit(t *testing.T) {
	c := newMemoryTestCache(t, 10, time.Hour, nil)

	if value, ok := c.Get("snapshot"); ok || value != nil {
		t.Fatalf("Get on empty cache = (%v, %v), want (nil, false)", value, ok)
	}

	c.Set("snapshot", []byte("blob"))

	value, ok := c.Get("snapshot")
	if !ok {
		t.Fatal("Get after Set reported a miss")
	}
	if string(value) != "blob" {
		t.Errorf("Get = %q, want %q", value, "blob")
	}
}

func TestMemoryCache_ContainsDoesNotRequireGet(t *testing.T) {
	c := newMemoryTestCache(t, 10, time.Hour, nil)

	if c.Contains("absent") {
		t.Error("Contains reported an absent key")
	}
	c.Set("present", []byte("data"))
	if !c.Contains("present") {
		t.Error("Contains missed a stored key")
	}
}

func TestMemoryCache_LenCountsDistinctKeys(t *testing.T) {
	c := newMemoryTestCache(t, 10, time.Hour, nil)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("a", []byte("replaced"))

	if got := c.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if value, _ := c.Get("a"); string(value) != "replaced" {
		t.Errorf("overwritten key holds %q, want %q", value, "replaced")
	}
}

func TestMemoryCache_EvictsOldestAtCapacity(t *testing.T) {
	var evicted []string
	c := newMemoryTestCache(t, 2, time.Hour, func(key string, _ []byte) {
		evicted = append(evicted, key)
	})

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	if c.Contains("a") {
		t.Error("oldest key survived past capacity")
	}
	if !c.Contains("b") || !c.Contains("c") {
		t.Error("recent keys were evicted")
	}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Errorf("eviction callback saw %v, want [a]", evicted)
	}
}

func TestMemoryCache_EntriesExpire(t *testing.T) {
	c := newMemoryTestCache(t, 10, 30*time.Millisecond, nil)

	c.Set("short-lived", []byte("blob"))
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("short-lived"); ok {
		t.Error("entry survived past its TTL")
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("create memory cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
