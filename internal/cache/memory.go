package cache

import (
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache keeps snapshot blobs in an in-process expirable LRU. Nothing
// survives the process, which suits tests and one-shot runs that rebuild the
// pool anyway.
type memoryCache struct {
	lru *lru.LRU[string, []byte]
}

func newMemoryCache(cfg ProviderConfig) (Cache, error) {
	var onEvict func(string, []byte)
	if cfg.OnEvict != nil {
		onEvict = cfg.OnEvict
	}
	return &memoryCache{lru: lru.NewLRU[string, []byte](cfg.Size, onEvict, cfg.TTL)}, nil
}

func (m *memoryCache) Get(key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *memoryCache) Set(key string, value []byte) {
	m.lru.Add(key, value)
}

func (m *memoryCache) Contains(key string) bool {
	return m.lru.Contains(key)
}

func (m *memoryCache) Len() int {
	return m.lru.Len()
}

// Close is a no-op; entries die with the process.
func (m *memoryCache) Close() error {
	return nil
}
