package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/cache/internal"
	"github.com/puzpuzpuz/xsync/v3"
)

// ttlCache is the unbounded engine: a concurrent map plus an optional
// sweeper driven by a min-heap of expiry deadlines.
type ttlCache struct {
	data    *xsync.MapOf[string, *entry]
	opts    Options
	metrics cacheMetrics

	// sweeper state, nil heap when disabled
	heapMu sync.Mutex
	heap   *internal.ExpiryHeap
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewTTLCache creates the unbounded engine and starts its sweeper if
// opts.SweepInterval is positive.
//
// Thread-safety: all methods are safe for concurrent use.
func NewTTLCache(opts Options) ICache {
	opts.normalize()
	c := &ttlCache{
		data:    xsync.NewMapOf[string, *entry](),
		opts:    opts,
		metrics: newCacheMetrics(opts.Name),
	}
	if opts.SweepInterval > 0 {
		c.heap = internal.NewExpiryHeap()
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.sweepLoop()
	}
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache.ICache)
// --------------------------------------------------------------------------

func (c *ttlCache) Get(key string) (value any, loaded bool) {
	defer recoverMiss("get", key, &value, &loaded)
	defer func() { c.metrics.record(loaded) }()

	e, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	if e.expired(c.opts.Now()) {
		c.evict(key, e)
		return nil, false
	}
	return e.value, true
}

func (c *ttlCache) Set(key string, value any, ttl time.Duration) {
	defer recoverOp("set", key)
	if ttl <= 0 {
		ttl = c.opts.DefaultTTL
	}
	e := &entry{value: value, expiresAt: c.opts.Now().Add(ttl)}
	c.data.Store(key, e)
	if c.heap != nil {
		c.heapMu.Lock()
		c.heap.Schedule(key, e.expiresAt.UnixNano())
		c.heapMu.Unlock()
	}
}

func (c *ttlCache) Invalidate(key string) {
	defer recoverOp("invalidate", key)
	c.data.Delete(key)
	if c.heap != nil {
		c.heapMu.Lock()
		c.heap.Unschedule(key)
		c.heapMu.Unlock()
	}
}

func (c *ttlCache) InvalidatePrefix(prefix string) {
	defer recoverOp("invalidate prefix", prefix)
	c.data.Range(func(key string, _ *entry) bool {
		if strings.HasPrefix(key, prefix) {
			c.Invalidate(key)
		}
		return true
	})
}

func (c *ttlCache) Clear() {
	defer recoverOp("clear", "")
	c.data.Clear()
	if c.heap != nil {
		c.heapMu.Lock()
		c.heap.Reset()
		c.heapMu.Unlock()
	}
}

func (c *ttlCache) Len() (n int) {
	defer recoverOp("len", "")
	return c.data.Size()
}

func (c *ttlCache) Close() {
	if c.stop == nil {
		return
	}
	c.once.Do(func() {
		close(c.stop)
		<-c.done
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// evict removes key only if it still maps to the expired entry e, so a
// concurrent Set is never lost.
func (c *ttlCache) evict(key string, e *entry) {
	removed := false
	c.data.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if loaded && old == e {
			removed = true
			return nil, true
		}
		return old, !loaded
	})
	if removed {
		c.metrics.evictions.Inc()
	}
}

func (c *ttlCache) sweepLoop() {
	defer close(c.done)
	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep drops entries whose deadline has passed. Every candidate is checked
// again against the map because it may have been refreshed meanwhile.
func (c *ttlCache) sweep() {
	now := c.opts.Now()
	c.heapMu.Lock()
	keys := c.heap.PopExpired(now.UnixNano())
	c.heapMu.Unlock()

	for _, key := range keys {
		if e, ok := c.data.Load(key); ok && e.expired(now) {
			c.evict(key, e)
		}
	}
	if len(keys) > 0 {
		Logger.Debugf("cache %s swept %d expired keys", c.opts.Name, len(keys))
	}
}
