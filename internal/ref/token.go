package ref

import (
	"context"
	"crypto/rand"
	"time"
)

// MaxTokenTTL bounds how long a callback payload may be parked.
const MaxTokenTTL = 30 * time.Minute

const (
	defaultTokenLength = 10
	minTokenLength     = 8
	maxTokenLength     = 16
	tokenAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// TokenStore parks an arbitrary payload behind a short opaque token for a
// bounded time. Put always overwrites; Get after expiry reports
// domain.ErrTokenExpired and lazily removes the entry.
type TokenStore interface {
	Put(ctx context.Context, token string, payload []byte, ttl time.Duration) error
	Get(ctx context.Context, token string) ([]byte, error)
}

// ClampTTL bounds a requested TTL to (0, MaxTokenTTL].
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > MaxTokenTTL {
		return MaxTokenTTL
	}
	return ttl
}

// NewToken returns a random URL-safe token of the default length.
func NewToken() string {
	return NewTokenN(defaultTokenLength)
}

// NewTokenN returns a random token of length n, clamped to [8, 16].
func NewTokenN(n int) string {
	if n < minTokenLength {
		n = minTokenLength
	}
	if n > maxTokenLength {
		n = maxTokenLength
	}
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out)
}
