package memory

import (
	"context"
	"sync"

	"github.com/goliatone/go-pageguard/pkg/interfaces/kv"
)

// Store is an in-memory kv.Store used by tests and ephemeral hosts.
type Store struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ kv.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{items: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := s.items[key]; ok {
			out[key] = val
		}
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, val := range values {
		s.items[key] = val
	}
	return nil
}

func (s *Store) Remove(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}

// Snapshot returns a copy of every stored entry.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.items))
	for key, val := range s.items {
		out[key] = val
	}
	return out
}
