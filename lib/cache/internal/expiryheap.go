// Package internal holds data structures private to the cache engines.
package internal

import (
	"container/heap"
)

// deadline is a cache key scheduled for expiry at At (unix nanoseconds).
type deadline struct {
	Key   string
	At    int64
	index int
}

// ExpiryHeap is a min-heap of expiry deadlines with O(1) lookup by key.
// A key is scheduled at most once; scheduling it again moves its deadline.
//
// Not thread-safe. The owning cache guards it with its own mutex.
type ExpiryHeap struct {
	items []*deadline
	byKey map[string]*deadline
}

// NewExpiryHeap returns an empty heap.
func NewExpiryHeap() *ExpiryHeap {
	return &ExpiryHeap{
		items: make([]*deadline, 0),
		byKey: make(map[string]*deadline),
	}
}

// Len returns the number of scheduled keys (part of heap.Interface)
func (h *ExpiryHeap) Len() int { return len(h.items) }

// Less orders by earliest deadline (part of heap.Interface)
func (h *ExpiryHeap) Less(i, j int) bool { return h.items[i].At < h.items[j].At }

// Swap exchanges items at positions i and j (part of heap.Interface)
func (h *ExpiryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push adds an item (part of heap.Interface, use Schedule instead)
func (h *ExpiryHeap) Push(x interface{}) {
	d := x.(*deadline)
	d.index = len(h.items)
	h.items = append(h.items, d)
	h.byKey[d.Key] = d
}

// Pop removes the last item (part of heap.Interface, use PopExpired instead)
func (h *ExpiryHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	h.items = old[:n-1]
	delete(h.byKey, d.Key)
	return d
}

// Schedule sets the deadline of key, adding it if needed.
func (h *ExpiryHeap) Schedule(key string, at int64) {
	if d, ok := h.byKey[key]; ok {
		d.At = at
		heap.Fix(h, d.index)
		return
	}
	heap.Push(h, &deadline{Key: key, At: at})
}

// Unschedule removes key. It reports whether the key was scheduled.
func (h *ExpiryHeap) Unschedule(key string) bool {
	d, ok := h.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(h, d.index)
	return true
}

// Next returns the earliest deadline without removing it.
func (h *ExpiryHeap) Next() (key string, at int64, ok bool) {
	if len(h.items) == 0 {
		return "", 0, false
	}
	return h.items[0].Key, h.items[0].At, true
}

// PopExpired removes and returns every key whose deadline is not after now,
// earliest first.
func (h *ExpiryHeap) PopExpired(now int64) []string {
	var keys []string
	for len(h.items) > 0 && h.items[0].At <= now {
		keys = append(keys, heap.Pop(h).(*deadline).Key)
	}
	return keys
}

// Contains reports whether key is scheduled.
func (h *ExpiryHeap) Contains(key string) bool {
	_, ok := h.byKey[key]
	return ok
}

// Reset drops every deadline.
func (h *ExpiryHeap) Reset() {
	h.items = h.items[:0]
	h.byKey = make(map[string]*deadline)
}
