package cache

import (
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cache")

const (
	// DefaultTTL applies when Set is called with a non-positive ttl.
	DefaultTTL = 5 * time.Minute
	// ListAllTTL is the shorter lifetime used for cross-owner listings.
	ListAllTTL = 150 * time.Second
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ICache is a process-local key/value cache with per-entry time-to-live.
// An entry stored at time s with lifetime ttl is served while now-s <= ttl
// and evicted by the first read after that. Cache operations never fail:
// anything that goes wrong inside an engine is reported as a miss.
type ICache interface {
	// Get returns the value for key if present and not expired.
	Get(key string) (value any, loaded bool)
	// Set stores value under key. A non-positive ttl selects the default TTL.
	Set(key string, value any, ttl time.Duration)
	// Invalidate removes key.
	Invalidate(key string)
	// InvalidatePrefix removes every key starting with prefix.
	InvalidatePrefix(prefix string)
	// Clear removes every entry.
	Clear()
	// Len returns the number of stored entries, expired ones included.
	Len() int
	// Close stops background work. The cache stays usable.
	Close()
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Concurrent misses may each run compute; the last Set wins.
// Errors from compute are returned and nothing is cached.
func GetOrCompute[T any](c ICache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	value, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, value, ttl)
	return value, nil
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a cache engine.
type Options struct {
	// Name labels the metrics of this cache instance.
	Name string
	// DefaultTTL replaces the package default when positive.
	DefaultTTL time.Duration
	// SweepInterval enables a background sweeper that drops expired entries
	// nobody reads anymore. Zero disables it.
	SweepInterval time.Duration
	// MaxEntries bounds the cache with LRU eviction. Zero means unbounded.
	MaxEntries int
	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// DefaultOptions returns options for an unbounded cache with the default TTL
// and a sweeper running once a minute.
func DefaultOptions() Options {
	return Options{
		Name:          "default",
		DefaultTTL:    DefaultTTL,
		SweepInterval: time.Minute,
		Now:           time.Now,
	}
}

func (o *Options) normalize() {
	if o.Name == "" {
		o.Name = "default"
	}
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// New returns the bounded engine if opts.MaxEntries is set and the
// unbounded engine otherwise.
func New(opts Options) ICache {
	if opts.MaxEntries > 0 {
		return NewBoundedCache(opts)
	}
	return NewTTLCache(opts)
}

// entry is the stored form shared by both engines.
type entry struct {
	value     any
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// recoverOp logs and swallows a panic inside an engine.
func recoverOp(op, key string) {
	if r := recover(); r != nil {
		Logger.Errorf("cache %s %q failed: %v", op, key, r)
	}
}

// recoverMiss turns a panic inside an engine into a miss.
func recoverMiss(op, key string, value *any, loaded *bool) {
	if r := recover(); r != nil {
		Logger.Warningf("cache %s %q failed, treating as miss: %v", op, key, r)
		*value, *loaded = nil, false
	}
}
