// Package store provides a generic, thread-safe, in-memory key-value store
// used by the Shopify twin. It keeps insertion order, hands out numeric
// resource IDs and supports Shopify-style single-page listing.
package store

import (
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Store is a generic, thread-safe, in-memory store for objects of type T.
// T must be a value that can be marshaled/unmarshaled to JSON.
type Store[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	order   []string // insertion order for deterministic listing
	base    int64
	counter atomic.Int64
}

// New creates a new Store whose IDs start after base (e.g. 450789468 yields
// 450789469 as the first ID), mimicking the large numeric IDs Shopify returns.
func New[T any](base int64) *Store[T] {
	return &Store[T]{
		items: make(map[string]T),
		order: make([]string, 0),
		base:  base,
	}
}

// NextID allocates the next numeric ID.
func (s *Store[T]) NextID() int64 {
	return s.base + s.counter.Add(1)
}

// Observe moves the ID counter past id, so records inserted with an
// explicit ID never collide with later NextID calls.
func (s *Store[T]) Observe(id int64) {
	for {
		cur := s.counter.Load()
		if id <= s.base+cur {
			return
		}
		if s.counter.CompareAndSwap(cur, id-s.base) {
			return
		}
	}
}

// Key formats a numeric ID as a store key.
func Key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Set stores an item with the given key. If the key already exists, it is
// overwritten but its position in the insertion order is preserved.
func (s *Store[T]) Set(key string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	s.items[key] = item
}

// Get retrieves an item by key.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	return item, ok
}

// Delete removes an item by key. Returns true if the item existed.
func (s *Store[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists {
		return false
	}
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all items in insertion order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]T, 0, len(s.order))
	for _, k := range s.order {
		result = append(result, s.items[k])
	}
	return result
}

// Keys returns all keys in insertion order.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Count returns the number of items in the store.
func (s *Store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Filter returns items that match the given predicate, in insertion order.
func (s *Store[T]) Filter(predicate func(key string, item T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []T
	for _, k := range s.order {
		if predicate(k, s.items[k]) {
			result = append(result, s.items[k])
		}
	}
	return result
}

// Page returns at most limit matching items in insertion order, plus the
// total number of matches. A limit <= 0 returns every match.
func (s *Store[T]) Page(predicate func(key string, item T) bool, limit int) ([]T, int) {
	matches := s.Filter(predicate)
	total := len(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []T{}
	}
	return matches, total
}

// Reset clears all items and resets the ID counter.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = make([]string, 0)
	s.counter.Store(0)
}

// Snapshot returns all items as a JSON-serializable map.
func (s *Store[T]) Snapshot() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]T, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	return snapshot
}

// LoadSnapshot replaces all items from a map. Keys are ordered numerically
// when they parse as integers, lexically otherwise. The ID counter is moved
// past the largest numeric key so new IDs never collide with loaded ones.
func (s *Store[T]) LoadSnapshot(snapshot map[string]T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(snapshot))
	s.order = make([]string, 0, len(snapshot))
	var maxID int64
	for k, v := range snapshot {
		s.items[k] = v
		s.order = append(s.order, k)
		if n, err := strconv.ParseInt(k, 10, 64); err == nil && n > maxID {
			maxID = n
		}
	}
	sort.Slice(s.order, func(i, j int) bool {
		a, errA := strconv.ParseInt(s.order[i], 10, 64)
		b, errB := strconv.ParseInt(s.order[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return s.order[i] < s.order[j]
	})
	if maxID > s.base+s.counter.Load() {
		s.counter.Store(maxID - s.base)
	}
}

// MarshalJSON serializes the store to JSON (the items map).
func (s *Store[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON deserializes JSON into the store, replacing existing items.
func (s *Store[T]) UnmarshalJSON(data []byte) error {
	var snapshot map[string]T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	s.LoadSnapshot(snapshot)
	return nil
}

// Clock provides a simulated clock for created_at/updated_at stamps.
type Clock struct {
	mu     sync.RWMutex
	offset time.Duration
}

// NewClock creates a new simulated clock with no offset.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

// Advance moves the simulated clock forward by the given duration.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// Reset resets the clock offset to zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
}

// Offset returns the current clock offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}
