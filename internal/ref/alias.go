package ref

import (
	"context"
	"fmt"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// AliasPathPrefix is where mappings live in the shared bucket store.
const AliasPathPrefix = "idmap/"

// BucketStore is the durable key->value mapping behind alias registration.
// Create is create-only (no overwrite); Get returns domain.ErrAliasNotFound
// for missing keys.
type BucketStore interface {
	Create(ctx context.Context, key, value string) (created bool, err error)
	Get(ctx context.Context, key string) (string, error)
}

// Service registers and resolves compact references.
type Service struct {
	store BucketStore
}

func NewService(store BucketStore) *Service {
	return &Service{store: store}
}

func aliasKey(alias string) string {
	return AliasPathPrefix + alias
}

// EnsureAlias records alias->long with at-most-one-writer-per-key semantics.
// A re-register with the same value succeeds idempotently; a different value
// under an existing alias is domain.ErrAliasCollision. The collision must
// propagate: it means either a hash defect or an adversarial identifier.
func (s *Service) EnsureAlias(ctx context.Context, alias, long string) error {
	if alias == "" || long == "" {
		return fmt.Errorf("alias and value must be non-empty")
	}
	created, err := s.store.Create(ctx, aliasKey(alias), long)
	if err != nil {
		return fmt.Errorf("register alias %s: %w", alias, err)
	}
	if created {
		return nil
	}
	existing, err := s.store.Get(ctx, aliasKey(alias))
	if err != nil {
		return fmt.Errorf("read back alias %s: %w", alias, err)
	}
	if existing != long {
		return fmt.Errorf("alias %s: %w", alias, domain.ErrAliasCollision)
	}
	return nil
}

// ResolveAlias returns the long value registered under alias.
func (s *Service) ResolveAlias(ctx context.Context, alias string) (string, error) {
	value, err := s.store.Get(ctx, aliasKey(alias))
	if err != nil {
		return "", err
	}
	return value, nil
}
