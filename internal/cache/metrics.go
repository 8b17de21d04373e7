package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Every cache metric shares one set of series split by a "cache" label,
// whose value is the Group from ProviderConfig. The mirror uses the group
// "icon_snapshots" for the pool snapshot cache.
var (
	// HitsTotal counts lookups that found their key.
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"cache"},
	)

	// MissesTotal counts lookups that came back empty.
	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"cache"},
	)

	// EvictionsTotal counts entries pushed out by capacity or TTL.
	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of entries evicted from the cache.",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(
		HitsTotal,
		MissesTotal,
		EvictionsTotal,
	)
}

// entriesCollector reports the live entry count for one cache group. It
// calls size at scrape time instead of caching a gauge, so backends that
// expire entries on their own (Redis TTLs) never report stale counts.
type entriesCollector struct {
	desc *prometheus.Desc
	size func() int
}

func (c *entriesCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *entriesCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.size()))
}

var (
	entriesMu      sync.Mutex
	entriesByGroup = make(map[string]*entriesCollector)
	// entriesReg is a variable so tests can swap in an isolated registry.
	entriesReg prometheus.Registerer = prometheus.DefaultRegisterer
)

// trackEntries registers the cache_entries collector for group. A collector
// left behind by an earlier cache instance of the same group is replaced.
func trackEntries(group string, size func() int) {
	desc := prometheus.NewDesc(
		"cache_entries",
		"Current number of entries in the cache.",
		nil,
		prometheus.Labels{"cache": group},
	)
	c := &entriesCollector{desc: desc, size: size}

	entriesMu.Lock()
	defer entriesMu.Unlock()

	if old, ok := entriesByGroup[group]; ok {
		entriesReg.Unregister(old)
	}
	entriesByGroup[group] = c
	_ = entriesReg.Register(c)
}

// untrackEntries removes the collector registered for group, if any.
func untrackEntries(group string) {
	entriesMu.Lock()
	defer entriesMu.Unlock()

	if c, ok := entriesByGroup[group]; ok {
		entriesReg.Unregister(c)
		delete(entriesByGroup, group)
	}
}
