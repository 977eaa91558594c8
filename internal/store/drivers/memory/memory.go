// Package memory is a process-local store driver for tests and throwaway
// sessions. Nothing survives the process.
package memory

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/praxis/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

// Keys returns a copy of the stored keys, for assertions in tests.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
