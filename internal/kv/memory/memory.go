// Package memory provides an in-memory kv.Store for tests and the default
// zero-config setup.
package memory

import (
	"context"
	"sync"

	"github.com/kailas-cloud/partdex/internal/kv"
)

// Store keeps values in a map. Contents do not survive a restart.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ kv.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Load returns a copy of the stored value.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Save stores a copy of value under key.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
