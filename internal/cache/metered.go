package cache

// meteredCache decorates a Cache with Prometheus accounting under the
// group label it was created with.
type meteredCache struct {
	Cache
	group string
}

// newMeteredCache wraps inner and registers a collector that reads Len at
// scrape time, so backends that expire entries on their own stay accurate.
func newMeteredCache(inner Cache, group string) *meteredCache {
	trackEntries(group, inner.Len)
	return &meteredCache{Cache: inner, group: group}
}

func (c *meteredCache) Get(key string) ([]byte, bool) {
	value, ok := c.Cache.Get(key)
	if ok {
		HitsTotal.WithLabelValues(c.group).Inc()
	} else {
		MissesTotal.WithLabelValues(c.group).Inc()
	}
	return value, ok
}

// Close drops the entries collector before closing the backend.
func (c *meteredCache) Close() error {
	untrackEntries(c.group)
	return c.Cache.Close()
}
