package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// PGStore keeps the state on landlords.workflow_state and the history in
// workflow_transitions.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// CurrentState implements Store.
func (s *PGStore) CurrentState(ctx context.Context, refID int64) (State, error) {
	var state State
	err := s.pool.QueryRow(ctx, `SELECT workflow_state FROM landlords WHERE id = $1`, refID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("workflow: landlord %d: %w", refID, shared.ErrNotFound)
	}
	return state, err
}

// Transition implements Store.
func (s *PGStore) Transition(ctx context.Context, log TransitionLog) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE landlords SET workflow_state = $3, updated_at = NOW() WHERE id = $1 AND workflow_state = $2`,
			log.RefID, log.From, log.To)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStateChanged
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO workflow_transitions (id, module, ref_id, from_state, to_state, action, actor, note, at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			log.ID, log.Module, log.RefID, log.From, log.To, log.Action, log.Actor, log.Note, log.At)
		return err
	})
}

// History implements Store.
func (s *PGStore) History(ctx context.Context, refID int64) ([]TransitionLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, module, ref_id, from_state, to_state, action, actor, note, at
		FROM workflow_transitions WHERE ref_id = $1 ORDER BY at ASC`, refID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []TransitionLog
	for rows.Next() {
		var l TransitionLog
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.From, &l.To, &l.Action, &l.Actor, &l.Note, &l.At); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
