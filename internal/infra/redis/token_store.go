package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

type tokenRecord struct {
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenStore parks callback payloads at cb:{token} with a Redis TTL as the
// hard bound and a stored expiresAt as the lazy guard, so a read racing the
// eviction still reports Expired rather than returning a dead payload.
type TokenStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client, clock: time.Now}
}

// WithClock overrides the time source for deterministic tests.
func (s *TokenStore) WithClock(clock func() time.Time) *TokenStore {
	s.clock = clock
	return s
}

func (s *TokenStore) key(token string) string {
	return "cb:" + token
}

func (s *TokenStore) Put(ctx context.Context, token string, payload []byte, ttl time.Duration) error {
	ttl = ref.ClampTTL(ttl)
	raw, err := json.Marshal(tokenRecord{Payload: payload, ExpiresAt: s.clock().Add(ttl)})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store token %s: %w", token, err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, token string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read token %s: %w", token, err)
	}
	var rec tokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", token, err)
	}
	if !s.clock().Before(rec.ExpiresAt) {
		_ = s.client.Del(ctx, s.key(token)).Err()
		return nil, domain.ErrTokenExpired
	}
	return rec.Payload, nil
}
