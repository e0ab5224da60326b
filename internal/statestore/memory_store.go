package statestore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is the non-durable backend used by tests and ephemeral
// deployments (STATE_BACKEND=memory).
type MemoryStore struct {
	cache     *cache.Cache
	mu        sync.Mutex // serializes read-modify-write spans
	listeners listenerSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage)
	for _, key := range keys {
		if x, found := s.cache.Get(key); found {
			result[key] = x.(json.RawMessage)
		}
	}
	return result, nil
}

func (s *MemoryStore) Set(ctx context.Context, values map[string]json.RawMessage) error {
	s.mu.Lock()
	changes := make([]Change, 0, len(values))
	for key, value := range values {
		var oldValue json.RawMessage
		if x, found := s.cache.Get(key); found {
			oldValue = x.(json.RawMessage)
		}
		s.cache.Set(key, value, cache.NoExpiration)
		changes = append(changes, Change{Key: key, OldValue: oldValue, NewValue: value})
	}
	s.mu.Unlock()

	s.listeners.notify(changes)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		if x, found := s.cache.Get(key); found {
			changes = append(changes, Change{Key: key, OldValue: x.(json.RawMessage)})
			s.cache.Delete(key)
		}
	}
	s.mu.Unlock()

	s.listeners.notify(changes)
	return nil
}

func (s *MemoryStore) OnChange(l Listener) {
	s.listeners.add(l)
}
