package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Idempotency claims a key before a side effect that must happen once.
type Idempotency interface {
	Claim(ctx context.Context, key, module string) error
	Release(ctx context.Context, key string) error
}

// ErrIdempotencyConflict is returned when the key is already claimed.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore keeps claimed keys in idempotency_keys.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Claim inserts key for module, or reports ErrIdempotencyConflict when an
// earlier call holds it.
func (s *IdempotencyStore) Claim(ctx context.Context, key, module string) error {
	if key == "" || module == "" {
		return errors.New("idempotency: key and module required")
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO NOTHING`, key, module)
	if err != nil {
		return fmt.Errorf("idempotency: claim %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release frees key so the side effect can run again on a later attempt.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key); err != nil {
		return fmt.Errorf("idempotency: release %s: %w", key, err)
	}
	return nil
}
