package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. Values still go through JSON so
// it behaves like the persistent backends.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, key string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = data
	s.mu.Unlock()
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, key string, dst interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(key, data, dst)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
