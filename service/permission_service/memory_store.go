package permission_service

import (
	"context"
	"sync"
)

// MemoryFlagStore 内存标记存储，用于测试和无持久化场景
type MemoryFlagStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{items: make(map[string]string)}
}

func (s *MemoryFlagStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryFlagStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryFlagStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
