package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// AliasStore implements ref.BucketStore over Redis. SETNX gives the
// create-only write the collision check depends on; mappings never expire.
type AliasStore struct {
	client *redis.Client
}

func NewAliasStore(client *redis.Client) *AliasStore {
	return &AliasStore{client: client}
}

func (s *AliasStore) Create(ctx context.Context, key, value string) (bool, error) {
	created, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("create %s: %w", key, err)
	}
	return created, nil
}

func (s *AliasStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrAliasNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}
