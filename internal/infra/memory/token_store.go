package memory

import (
	"context"
	"sync"
	"time"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

type tokenRecord struct {
	payload   []byte
	expiresAt time.Time
}

// TokenStore is an in-memory implementation of ref.TokenStore with lazy
// expiry on read.
type TokenStore struct {
	clock func() time.Time

	mu     sync.Mutex
	tokens map[string]tokenRecord
}

func NewTokenStore() *TokenStore {
	return &TokenStore{clock: time.Now, tokens: make(map[string]tokenRecord)}
}

// WithClock overrides the time source for deterministic tests.
func (s *TokenStore) WithClock(clock func() time.Time) *TokenStore {
	s.clock = clock
	return s
}

func (s *TokenStore) Put(_ context.Context, token string, payload []byte, ttl time.Duration) error {
	ttl = ref.ClampTTL(ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = tokenRecord{
		payload:   append([]byte(nil), payload...),
		expiresAt: s.clock().Add(ttl),
	}
	return nil
}

func (s *TokenStore) Get(_ context.Context, token string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if !s.clock().Before(rec.expiresAt) {
		delete(s.tokens, token)
		return nil, domain.ErrTokenExpired
	}
	return append([]byte(nil), rec.payload...), nil
}
