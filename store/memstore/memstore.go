// Package memstore provides an in-memory storage backend for tests and
// demos. Nothing survives process exit.
package memstore

import (
	"context"
	"sync"

	"github.com/sbiswal/portalauth/store"
)

// Store implements [store.Backend] over a mutex-guarded map.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

var _ store.Backend = (*Store)(nil)

// New creates an empty in-memory backend.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrUnavailable
	}
	value, ok := s.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrUnavailable
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrUnavailable
	}
	delete(s.values, key)
	return nil
}

// Close marks the backend unavailable; subsequent operations fail with
// [store.ErrUnavailable]. Tests use this to simulate storage loss.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
