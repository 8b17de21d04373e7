package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces everything this module writes into Redis.
	keyPrefix = "epgmirror:"

	// opTimeout bounds every Redis round trip so a stalled server cannot
	// hang a mirror run.
	opTimeout = 2 * time.Second
)

func init() {
	Register("redis", newRedisCache)
}

// redisCache keeps snapshot blobs in Redis or Valkey with LRU semantics
// built on exactly two server keys, however many entries are cached:
//
//   - {prefix}data, a hash holding the values (field = cache key).
//   - {prefix}lru, a sorted set ordering keys by last-access µs timestamp.
//
// Per-field TTLs come from HPEXPIRE, which needs Redis 7.4+ or Valkey 8+;
// on older servers values are stored but never expire on their own. Lua
// scripts make Get (touch) and Set (write plus evict) atomic, and eviction
// lazily sweeps sorted-set members whose hash field already expired.
type redisCache struct {
	client  *redis.Client
	ttl     time.Duration
	maxSize int
	onEvict EvictCallback
	logger  Logger
	dataKey string
	lruKey  string
}

// getAndTouch returns the value stored under ARGV[2] in the hash at KEYS[1]
// and, on a hit, bumps its score in the LRU sorted set at KEYS[2] to
// ARGV[1], the current µs timestamp. A miss, expired fields included,
// yields nil.
var getAndTouch = redis.NewScript(`
local val = redis.call('HGET', KEYS[1], ARGV[2])
if val then
    redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
end
return val
`)

// setAndEvict writes ARGV[1] under ARGV[3], arms the per-field TTL of
// ARGV[5] milliseconds, refreshes the LRU score to ARGV[2], then pops
// least-recently-used members until the set fits within ARGV[4] entries.
// It returns the evicted member names; members whose hash field already
// expired are swept here as well, HDEL being a no-op for them.
var setAndEvict = redis.NewScript(`
local member  = ARGV[3]
local maxSize = tonumber(ARGV[4])
local ttlMs   = tonumber(ARGV[5])

-- Store value and set per-field TTL
redis.call('HSET', KEYS[1], member, ARGV[1])
redis.call('HPEXPIRE', KEYS[1], ttlMs, 'FIELDS', 1, member)

-- Update LRU score
redis.call('ZADD', KEYS[2], ARGV[2], member)

-- Evict least-recently-used entries if over capacity.
-- If the hash field was already expired by Redis, HDEL is a harmless no-op
-- and we still clean the stale sorted-set member.
local size = redis.call('ZCARD', KEYS[2])
local evicted = {}
while size > maxSize do
    local oldest = redis.call('ZPOPMIN', KEYS[2], 1)
    if #oldest == 0 then break end
    local oldMember = oldest[1]
    redis.call('HDEL', KEYS[1], oldMember)
    table.insert(evicted, oldMember)
    size = size - 1
end

return evicted
`)

func newRedisCache(cfg ProviderConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisCache{
		client:  client,
		ttl:     cfg.TTL,
		maxSize: cfg.Size,
		onEvict: cfg.OnEvict,
		logger:  cfg.Logger,
		dataKey: keyPrefix + "data",
		lruKey:  keyPrefix + "lru",
	}, nil
}

// opCtx bounds a single Redis operation.
func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func (r *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := opCtx()
	defer cancel()

	now := strconv.FormatInt(time.Now().UnixMicro(), 10)
	val, err := getAndTouch.Run(ctx, r.client, []string{r.dataKey, r.lruKey}, now, key).Text()
	if err != nil {
		// redis.Nil is an ordinary miss.
		if !errors.Is(err, redis.Nil) {
			r.report("redis cache Get failed", err)
		}
		return nil, false
	}
	return []byte(val), true
}

func (r *redisCache) Set(key string, value []byte) {
	ctx, cancel := opCtx()
	defer cancel()

	now := strconv.FormatInt(time.Now().UnixMicro(), 10)
	evicted, err := setAndEvict.Run(ctx, r.client, []string{r.dataKey, r.lruKey},
		value, now, key, strconv.Itoa(r.maxSize), strconv.FormatInt(r.ttl.Milliseconds(), 10),
	).StringSlice()
	if err != nil {
		r.report("redis cache Set failed", err)
		return
	}

	if r.onEvict == nil {
		return
	}
	// Fetching evicted values back would cost extra round trips, so the
	// callback only ever sees the key.
	for _, k := range evicted {
		r.onEvict(k, nil)
	}
}

func (r *redisCache) Contains(key string) bool {
	ctx, cancel := opCtx()
	defer cancel()

	ok, err := r.client.HExists(ctx, r.dataKey, key).Result()
	if err != nil {
		r.report("redis cache Contains failed", err)
		return false
	}
	return ok
}

func (r *redisCache) Len() int {
	ctx, cancel := opCtx()
	defer cancel()

	n, err := r.client.HLen(ctx, r.dataKey).Result()
	if err != nil {
		r.report("redis cache Len failed", err)
		return 0
	}
	return int(n)
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

func (r *redisCache) report(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, err)
	}
}
