package dal

import (
	"reflect"
	"sync"
)

// Store is a concurrent key/value store with write-once semantics.
// It backs the process-wide caches (compiled statements, marshal plans):
// entries are published fully built and never replaced.
type Store[K comparable, V any] interface {
	// Load returns the value stored for key, if any.
	Load(key K) (V, bool)

	// LoadOrStore returns the existing value for key if present. Otherwise it
	// stores and returns v. The loaded result reports whether v was discarded.
	LoadOrStore(key K, v V) (actual V, loaded bool)

	// Len returns the number of stored entries.
	Len() int
}

// SyncStore is a Store backed by sync.Map.
type SyncStore[K comparable, V any] struct {
	m sync.Map
}

// NewSyncStore returns an empty SyncStore.
func NewSyncStore[K comparable, V any]() *SyncStore[K, V] {
	return &SyncStore[K, V]{}
}

// Load implements Store.
func (s *SyncStore[K, V]) Load(key K) (V, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// LoadOrStore implements Store.
func (s *SyncStore[K, V]) LoadOrStore(key K, v V) (V, bool) {
	actual, loaded := s.m.LoadOrStore(key, v)
	return actual.(V), loaded
}

// Len implements Store.
func (s *SyncStore[K, V]) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// TypeStore is a Store keyed by record type.
type TypeStore[V any] = Store[reflect.Type, V]

var _ Store[string, int] = (*SyncStore[string, int])(nil)
