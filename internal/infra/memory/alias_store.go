package memory

import (
	"context"
	"sync"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// AliasStore is an in-memory implementation of ref.BucketStore with
// create-only writes.
type AliasStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewAliasStore() *AliasStore {
	return &AliasStore{values: make(map[string]string)}
}

func (s *AliasStore) Create(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value
	return true, nil
}

func (s *AliasStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrAliasNotFound
	}
	return value, nil
}
