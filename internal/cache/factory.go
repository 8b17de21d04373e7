package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProviderConfig carries everything a provider constructor may need. Fields
// that a given backend does not use are ignored by it.
type ProviderConfig struct {
	// Size caps the number of entries for LRU-style backends.
	Size int

	// TTL is how long an entry stays valid.
	TTL time.Duration

	// OnEvict fires when an entry is dropped. Not every backend supports it.
	OnEvict EvictCallback

	// Logger receives errors from background cache work. Nil discards them.
	Logger Logger

	// Path is the directory used by on-disk backends.
	Path string

	// RedisAddress points at a Redis or Valkey server ("localhost:6379").
	RedisAddress string

	// RedisPassword authenticates against the server, empty for none.
	RedisPassword string

	// RedisDB selects the Redis database number.
	RedisDB int

	// Group, when non-empty, namespaces the Prometheus cache metrics and
	// turns on instrumentation for the returned cache.
	Group string
}

// Provider builds a Cache from config.
type Provider func(cfg ProviderConfig) (Cache, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register makes a provider available under name. Registering a nil provider
// or the same name twice panics.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if p == nil {
		panic("cache: Register provider is nil")
	}
	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("cache: provider %q already registered", name))
	}
	providers[name] = p
}

// New builds a Cache using the named provider. With a non-empty cfg.Group
// the result is wrapped in metering: hits, misses, and evictions count under
// the "cache" label, and an entries collector reads Len at scrape time.
func New(name string, cfg ProviderConfig) (Cache, error) {
	mu.RLock()
	p, ok := providers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}

	if cfg.Group == "" {
		return p(cfg)
	}

	group := cfg.Group
	// Count evictions here so every backend gets the metric for free.
	original := cfg.OnEvict
	cfg.OnEvict = func(key string, value []byte) {
		EvictionsTotal.WithLabelValues(group).Inc()
		if original != nil {
			original(key, value)
		}
	}

	inner, err := p(cfg)
	if err != nil {
		return nil, err
	}

	return newMeteredCache(inner, group), nil
}

// RegisteredProviders returns the registered provider names, sorted.
func RegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
