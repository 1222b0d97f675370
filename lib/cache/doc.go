// Package cache provides the in-memory TTL cache placed in front of the
// document store.
//
// Two engines implement ICache:
//
//   - NewTTLCache: unbounded, backed by xsync.MapOf. Expired entries are
//     evicted when read; an optional sweeper pops deadlines from a min-heap
//     and removes entries nobody reads anymore.
//   - NewBoundedCache: at most MaxEntries entries with LRU eviction, backed by
//     hashicorp/golang-lru. Expiry is checked on read.
//
// Both engines count hits, misses and evictions as VictoriaMetrics counters
// labelled with Options.Name.
//
// GetOrCompute is a read-through helper. It does not coalesce concurrent
// misses.
package cache
