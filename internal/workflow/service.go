package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// ErrStateChanged indicates the record moved while the action was applied.
var ErrStateChanged = errors.New("workflow: state changed concurrently")

// TransitionLog is one applied action.
type TransitionLog struct {
	ID     uuid.UUID `json:"id"`
	Module string    `json:"module"`
	RefID  int64     `json:"ref_id"`
	From   State     `json:"from_state"`
	To     State     `json:"to_state"`
	Action Action    `json:"action"`
	Actor  string    `json:"actor"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

// Store persists workflow state and history.
type Store interface {
	CurrentState(ctx context.Context, refID int64) (State, error)
	// Transition moves refID from log.From to log.To and appends log, failing
	// with ErrStateChanged when the stored state is no longer log.From.
	Transition(ctx context.Context, log TransitionLog) error
	History(ctx context.Context, refID int64) ([]TransitionLog, error)
}

// Service applies workflow actions to landlord records.
type Service struct {
	def     Definition
	store   Store
	auditor shared.Auditor
	cache   shared.Invalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds a Service for the landlord workflow.
func NewService(store Store, auditor shared.Auditor, cache shared.Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{def: Landlord, store: store, auditor: auditor, cache: cache, logger: logger, now: time.Now}
}

// Actions is the workflow action lookup.
func (s *Service) Actions(state State, roles []string) ([]Transition, error) {
	if !s.def.Valid(state) {
		return nil, shared.Invalid("state", fmt.Sprintf("unknown workflow state %q", state))
	}
	return s.def.Actions(state, roles), nil
}

// Apply runs action on the landlord for principal and returns the log entry.
func (s *Service) Apply(ctx context.Context, refID int64, action Action, principal rbac.Principal, note string) (TransitionLog, error) {
	current, err := s.store.CurrentState(ctx, refID)
	if err != nil {
		return TransitionLog{}, err
	}
	t, ok := s.def.Find(current, action)
	if !ok {
		return TransitionLog{}, fmt.Errorf("workflow: %s is not allowed from %s: %w", action, current, shared.ErrInvalidState)
	}
	if !principal.HasAny(t.Role) {
		return TransitionLog{}, fmt.Errorf("workflow: %s requires role %s: %w", action, t.Role, shared.ErrForbidden)
	}
	log := TransitionLog{
		ID:     uuid.New(),
		Module: strings.ToLower(s.def.DocType),
		RefID:  refID,
		From:   t.From,
		To:     t.To,
		Action: action,
		Actor:  principal.Name,
		Note:   strings.TrimSpace(note),
		At:     s.now(),
	}
	if err := s.store.Transition(ctx, log); err != nil {
		if errors.Is(err, ErrStateChanged) {
			return TransitionLog{}, fmt.Errorf("%w: %w", err, shared.ErrInvalidState)
		}
		return TransitionLog{}, fmt.Errorf("workflow: apply %s: %w", action, err)
	}
	s.logger.Info("workflow transition", slog.Int64("ref_id", refID), slog.String("action", string(action)),
		slog.String("from", string(t.From)), slog.String("to", string(t.To)), slog.String("actor", principal.Name))
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: principal.Name, Action: "workflow_" + strings.ToLower(string(action)), Entity: log.Module,
		EntityID: strconv.FormatInt(refID, 10), Meta: map[string]any{"from": t.From, "to": t.To},
	})
	shared.BumpQuietly(ctx, s.cache, s.logger)
	return log, nil
}

// History lists applied actions, oldest first.
func (s *Service) History(ctx context.Context, refID int64) ([]TransitionLog, error) {
	return s.store.History(ctx, refID)
}
