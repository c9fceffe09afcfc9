// Package cache provides a content-addressed, deduplicating store for derived
// GPU objects (shader modules, pipelines, images) with polymorphic teardown.
//
// Entries are keyed by a deterministic content hash over creation parameters.
// A hash hit is always confirmed by a full key equality check; a hash match
// with a key mismatch is a fatal KeyCollisionError, signaling a defective
// hash function rather than a normal miss.
//
// The store is content-addressed, not node-addressed: entries survive graph
// recompilation and are destroyed only by an explicit Teardown, which runs
// each entry's teardown callback in reverse creation order.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Key is a content hash key over creation parameters.
//
// Hash must be deterministic across processes for equal keys. Equal must
// compare the full key contents; it is consulted on every hash hit.
type Key interface {
	Hash() uint64
	Equal(other any) bool
}

// Teardown destroys the cached object. Heterogeneous resource kinds share the
// store through this callback, so teardown needs no per-kind branching.
type Teardown func()

// KeyCollisionError reports a hash match with mismatched key contents.
// It is always fatal: it indicates a defect in the key's hash function,
// never a normal cache miss.
type KeyCollisionError struct {
	// Hash is the colliding hash value.
	Hash uint64

	// Stored is the key already present in the store.
	Stored Key

	// Requested is the key that collided with it.
	Requested Key
}

func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("cache: key collision at hash %#x: stored %v, requested %v", e.Hash, e.Stored, e.Requested)
}

// entry holds one cached object with its key and teardown callback.
type entry struct {
	key      Key
	value    any
	teardown Teardown
	refs     int64
}

// Stats contains store statistics for monitoring.
type Stats struct {
	// Entries is the number of live cached objects.
	Entries int
	// Hits is the number of GetOrCreate calls that reused an entry.
	Hits uint64
	// Misses is the number of GetOrCreate calls that ran the factory.
	Misses uint64
}

// Store is the content-addressed resource store.
//
// Lookups are guarded for concurrent readers, but graph compilation drives
// the store from a single goroutine; the locking exists so diagnostics can
// read statistics while a frame is in flight.
type Store struct {
	mu      sync.RWMutex
	entries map[uint64]*entry
	order   []uint64 // creation order, for reverse-order teardown

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[uint64]*entry)}
}

// GetOrCreate returns the object stored under key, running create exactly once
// on a genuine miss. On a hash hit the stored key is compared with Equal; a
// mismatch returns a *KeyCollisionError.
//
// Each successful call increments the entry's reference count. The count is
// informational: entries live until Teardown regardless, because keys are
// content-addressed and a future node may request the same derived state.
func (s *Store) GetOrCreate(key Key, create func() (any, Teardown, error)) (any, error) {
	h := key.Hash()

	// Fast path: read lock.
	s.mu.RLock()
	e, ok := s.entries[h]
	s.mu.RUnlock()
	if ok {
		return s.hit(h, e, key)
	}

	// Slow path: write lock with double-check.
	s.mu.Lock()
	if e, ok := s.entries[h]; ok {
		s.mu.Unlock()
		return s.hit(h, e, key)
	}
	defer s.mu.Unlock()

	value, teardown, err := create()
	if err != nil {
		return nil, err
	}
	s.entries[h] = &entry{key: key, value: value, teardown: teardown, refs: 1}
	s.order = append(s.order, h)
	s.misses.Add(1)
	return value, nil
}

func (s *Store) hit(h uint64, e *entry, key Key) (any, error) {
	if !e.key.Equal(any(key)) {
		return nil, &KeyCollisionError{Hash: h, Stored: e.key, Requested: key}
	}
	s.mu.Lock()
	e.refs++
	s.mu.Unlock()
	s.hits.Add(1)
	return e.value, nil
}

// Release decrements the reference count for key's entry, if present.
// It never destroys the entry; teardown is explicit.
func (s *Store) Release(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key.Hash()]; ok && e.refs > 0 {
		e.refs--
	}
}

// Refs returns the reference count for key's entry, or zero.
func (s *Store) Refs(key Key) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key.Hash()]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	entries := len(s.entries)
	s.mu.RUnlock()
	return Stats{
		Entries: entries,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
}

// Teardown destroys every entry in reverse creation order and empties the
// store. Safe to call more than once.
func (s *Store) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		e, ok := s.entries[s.order[i]]
		if !ok {
			continue
		}
		if e.teardown != nil {
			e.teardown()
		}
	}
	s.entries = make(map[uint64]*entry)
	s.order = nil
}

// GetOrCreateAs is a typed wrapper around Store.GetOrCreate.
func GetOrCreateAs[T any](s *Store, key Key, create func() (T, Teardown, error)) (T, error) {
	v, err := s.GetOrCreate(key, func() (any, Teardown, error) {
		value, teardown, err := create()
		return value, teardown, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
