package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// boundedCache caps the number of entries with LRU eviction. The LRU's own
// TTL is an upper bound only; each entry carries its own deadline.
type boundedCache struct {
	lru     *expirable.LRU[string, *entry]
	opts    Options
	metrics cacheMetrics
}

// NewBoundedCache creates an engine holding at most opts.MaxEntries entries.
// Expired entries are dropped on read or when they fall off the LRU end.
//
// Thread-safety: all methods are safe for concurrent use.
func NewBoundedCache(opts Options) ICache {
	opts.normalize()
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1024
	}
	c := &boundedCache{opts: opts, metrics: newCacheMetrics(opts.Name)}
	c.lru = expirable.NewLRU[string, *entry](opts.MaxEntries, func(string, *entry) {
		c.metrics.evictions.Inc()
	}, 0)
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache.ICache)
// --------------------------------------------------------------------------

func (c *boundedCache) Get(key string) (value any, loaded bool) {
	defer recoverMiss("get", key, &value, &loaded)
	defer func() { c.metrics.record(loaded) }()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if e.expired(c.opts.Now()) {
		// only drop the entry we looked at, a concurrent Set may have replaced it
		if current, ok := c.lru.Peek(key); ok && current == e {
			c.lru.Remove(key)
		}
		return nil, false
	}
	return e.value, true
}

func (c *boundedCache) Set(key string, value any, ttl time.Duration) {
	defer recoverOp("set", key)
	if ttl <= 0 {
		ttl = c.opts.DefaultTTL
	}
	c.lru.Add(key, &entry{value: value, expiresAt: c.opts.Now().Add(ttl)})
}

func (c *boundedCache) Invalidate(key string) {
	defer recoverOp("invalidate", key)
	c.lru.Remove(key)
}

func (c *boundedCache) InvalidatePrefix(prefix string) {
	defer recoverOp("invalidate prefix", prefix)
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

func (c *boundedCache) Clear() {
	defer recoverOp("clear", "")
	c.lru.Purge()
}

func (c *boundedCache) Len() (n int) {
	defer recoverOp("len", "")
	return c.lru.Len()
}

func (c *boundedCache) Close() {}
