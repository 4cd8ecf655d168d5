package setup

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps metadata records, one table per Kind.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func table(kind Kind) (string, error) {
	if !slices.Contains(Kinds, kind) {
		return "", fmt.Errorf("setup: unknown metadata kind %q", kind)
	}
	return pgx.Identifier{string(kind)}.Sanitize(), nil
}

// Exists implements Store.
func (s *PGStore) Exists(ctx context.Context, kind Kind, name string) (bool, error) {
	t, err := table(kind)
	if err != nil {
		return false, err
	}
	var one int
	err = s.pool.QueryRow(ctx, `SELECT 1 FROM `+t+` WHERE name = $1`, name).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Insert implements Store.
func (s *PGStore) Insert(ctx context.Context, rec Record) error {
	t, err := table(rec.Kind)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO `+t+` (name, definition, created_at) VALUES ($1, $2, NOW())`, rec.Name, []byte(rec.Definition))
	return err
}
