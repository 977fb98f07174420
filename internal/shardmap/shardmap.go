// Package shardmap provides a string-keyed map split across independently
// locked shards, so operations on different keys rarely contend.
package shardmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShardCount is used when a non power of two is requested
const DefaultShardCount = 32

// Map is a concurrent-safe sharded map.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint64
	seed   maphash.Seed
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a map with DefaultShardCount shards
func New[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

// NewWithShards creates a map with shardCount shards. shardCount must be a power of 2.
func NewWithShards[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards: make([]*shard[V], shardCount),
		mask:   uint64(shardCount - 1),
		seed:   maphash.MakeSeed(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[maphash.String(m.seed, key)&m.mask]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = value
}

// Delete removes key.
func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
}

// Compute runs fn with the shard for key locked. fn receives the current value
// and reports the value to keep; returning keep=false deletes the key.
func (m *Map[V]) Compute(key string, fn func(value V, exists bool) (newValue V, keep bool)) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[key]
	newValue, keep := fn(existing, exists)
	if keep {
		s.items[key] = newValue
	} else {
		delete(s.items, key)
	}
}

// Len returns the number of stored keys. Shards are locked one at a time,
// so the result is approximate under concurrent writes.
func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// DeleteIf removes every entry for which fn returns true and reports how many were removed.
func (m *Map[V]) DeleteIf(fn func(key string, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if fn(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
