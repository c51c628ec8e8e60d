// Package cache provides explicit memoization keyed by structural values.
// Entries never expire on their own; callers invalidate them when the inputs
// a value was derived from change.
package cache

import (
	"reflect"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
)

type entry[K any, V any] struct {
	key   K
	value V
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

// Memo memoizes values computed from structural keys. Keys are hashed with
// hashstructure and compared with reflect.DeepEqual on lookup, so two keys
// only share an entry when they are structurally equal.
type Memo[K any, V any] struct {
	mu      sync.Mutex
	buckets map[uint64][]entry[K, V]
	hits    int
	misses  int
}

// New creates an empty memo.
func New[K any, V any]() *Memo[K, V] {
	return &Memo[K, V]{buckets: make(map[uint64][]entry[K, V])}
}

// Get returns the cached value for key, computing and storing it on a miss.
// Errors from compute are returned and never cached. Keys that cannot be
// hashed bypass the cache.
func (m *Memo[K, V]) Get(key K, compute func() (V, error)) (V, error) {
	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return compute()
	}

	m.mu.Lock()
	for _, e := range m.buckets[h] {
		if reflect.DeepEqual(e.key, key) {
			m.hits++
			m.mu.Unlock()
			return e.value, nil
		}
	}
	m.misses++
	m.mu.Unlock()

	value, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[h] = append(m.buckets[h], entry[K, V]{key: key, value: value})
	return value, nil
}

// Invalidate drops the entry for key, if present.
func (m *Memo[K, V]) Invalidate(key K) {
	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.buckets[h]
	for i, e := range bucket {
		if reflect.DeepEqual(e.key, key) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(m.buckets, h)
	} else {
		m.buckets[h] = bucket
	}
}

// InvalidateWhere drops every entry whose key matches pred and returns how
// many were dropped.
func (m *Memo[K, V]) InvalidateWhere(pred func(K) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for h, bucket := range m.buckets {
		kept := bucket[:0]
		for _, e := range bucket {
			if pred(e.key) {
				dropped++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(m.buckets, h)
		} else {
			m.buckets[h] = kept
		}
	}
	return dropped
}

// Reset drops every entry and clears the counters.
func (m *Memo[K, V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = make(map[uint64][]entry[K, V])
	m.hits = 0
	m.misses = 0
}

// Stats returns a snapshot of the counters.
func (m *Memo[K, V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, bucket := range m.buckets {
		n += len(bucket)
	}
	return Stats{Hits: m.hits, Misses: m.misses, Entries: n}
}
