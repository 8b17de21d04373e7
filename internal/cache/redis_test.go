package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// The Redis tests need a live server. They skip themselves unless
// REDIS_ADDRESS (for example "localhost:6379") is set, and they work in
// DB 15 so a developer instance keeps its real data.

func redisTestAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("Skipping Redis tests: set REDIS_ADDRESS to enable")
	}
	return addr
}

func flushRedisTestDB(t *testing.T, addr string) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Flush Redis test DB: %v", err)
	}
}

// newRedisTestCache builds a redis-backed cache against a freshly flushed
// DB 15 and closes it when the test ends.
func newRedisTestCache(t *testing.T, size int, ttl time.Duration, onEvict EvictCallback) Cache {
	t.Helper()
	addr := redisTestAddr(t)
	flushRedisTestDB(t, addr)
	c, err := New("redis", ProviderConfig{
		Size:         size,
		TTL:          ttl,
		RedisAddress: addr,
		RedisDB:      15,
		OnEvict:      onEvict,
	})
	if err != nil {
		t.Fatalf("New redis cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_MissThenHit(t *testing.T) {
	c := newRedisTestCache(t, 100, 10*time.Second, nil)

	if val, ok := c.Get("snapshot"); ok || val != nil {
		t.Fatalf("Expected a clean miss on a fresh DB, got ok=%v val=%v", ok, val)
	}

	c.Set("snapshot", []byte("tarball"))
	val, ok := c.Get("snapshot")
	if !ok || string(val) != "tarball" {
		t.Fatalf("Expected 'tarball' after Set, got ok=%v val=%q", ok, val)
	}
}

func TestRedisCache_ContainsDoesNotRequireGet(t *testing.T) {
	c := newRedisTestCache(t, 100, 10*time.Second, nil)

	if c.Contains("absent") {
		t.Fatal("Expected Contains to be false for an absent key")
	}

	c.Set("present", []byte("data"))
	if !c.Contains("present") {
		t.Fatal("Expected Contains to be true after Set")
	}
}

func TestRedisCache_LenCountsDistinctKeys(t *testing.T) {
	c := newRedisTestCache(t, 100, 10*time.Second, nil)

	if n := c.Len(); n != 0 {
		t.Fatalf("Expected Len 0 on a flushed DB, got %d", n)
	}

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("a", []byte("3"))

	if n := c.Len(); n != 2 {
		t.Fatalf("Expected Len 2 after overwriting 'a', got %d", n)
	}
}

func TestRedisCache_EvictsOldestAtCapacity(t *testing.T) {
	var evicted []string
	c := newRedisTestCache(t, 2, 10*time.Second, func(key string, _ []byte) {
		evicted = append(evicted, key)
	})

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	if c.Contains("a") {
		t.Fatal("Expected 'a' to be evicted as the oldest entry")
	}
	if !c.Contains("b") || !c.Contains("c") {
		t.Fatal("Expected 'b' and 'c' to survive")
	}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("Expected the eviction callback to see 'a', got %v", evicted)
	}
}

func TestRedisCache_GetPromotesAgainstEviction(t *testing.T) {
	c := newRedisTestCache(t, 2, 10*time.Second, nil)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	// Touching "a" makes "b" the oldest entry.
	_, _ = c.Get("a")

	c.Set("c", []byte("3"))

	if c.Contains("b") {
		t.Fatal("Expected 'b' to be evicted after 'a' was touched")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Fatal("Expected 'a' and 'c' to survive")
	}
}

func TestRedisCache_Close(t *testing.T) {
	addr := redisTestAddr(t)
	flushRedisTestDB(t, addr)

	c, err := New("redis", ProviderConfig{
		Size:         10,
		TTL:          time.Minute,
		RedisAddress: addr,
		RedisDB:      15,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
