// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import "sync"

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is the in-process Store implementation. A mutex
// serializes all mutations, so the change hooks observe them in a
// consistent order.
//
// The hooks run after the mutex is released. A hook must not assume
// the value it is notified about is still current — re-read through
// Get if it needs the value.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]any

	// OnChange, if set, is called with the key after every Put,
	// Patch, or Delete that modified the store.
	OnChange func(key string)

	// OnInvalidate, if set, is called with the tag after every
	// Invalidate.
	OnInvalidate func(tag string)
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]any)}
}

// Get returns the value at key, if present.
func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Put inserts or replaces the value at key.
func (s *MemoryStore) Put(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	s.notifyChange(key)
}

// Patch applies update to the value at key. Returns false without
// calling update when the key is absent.
func (s *MemoryStore) Patch(key string, update func(value any) any) bool {
	s.mu.Lock()
	value, ok := s.values[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.values[key] = update(value)
	s.mu.Unlock()

	s.notifyChange(key)
	return true
}

// Delete removes the value at key, if present.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	_, ok := s.values[key]
	if ok {
		delete(s.values, key)
	}
	s.mu.Unlock()

	if ok {
		s.notifyChange(key)
	}
}

// Invalidate fires the invalidation hook for the tag. The store holds
// no list state itself — lists are owned by the REST layer this hook
// points back at.
func (s *MemoryStore) Invalidate(tag string) {
	if s.OnInvalidate != nil {
		s.OnInvalidate(tag)
	}
}

// Len returns the number of cached keys. Useful for test assertions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *MemoryStore) notifyChange(key string) {
	if s.OnChange != nil {
		s.OnChange(key)
	}
}
