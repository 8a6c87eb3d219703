package internal

import (
	"context"
	"sync"
)

// MemoryStore implements KVStore with an in-process map
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get implements KVStore.
func (s *MemoryStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, &StorageError{Op: "get", Err: ErrStoreUnavailable}
	}

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			cp := make([]byte, len(v))
			copy(cp, v)
			out[k] = cp
		}
	}
	return out, nil
}

// Set implements KVStore.
func (s *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "set", Err: err}
	}

	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &StorageError{Op: "set", Err: ErrStoreUnavailable}
	}
	for k, v := range encoded {
		s.values[k] = v
	}
	return nil
}

// Close implements KVStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.values = nil
	return nil
}
