package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// ErrNotFound indicates the installation does not exist.
var ErrNotFound = errors.New("media: not found")

// Repository is the persistence port for installations.
type Repository interface {
	Create(ctx context.Context, in Installation) (Installation, error)
	Update(ctx context.Context, in Installation) (Installation, error)
	Get(ctx context.Context, id int64) (Installation, error)
	ListByProperty(ctx context.Context, propertyID int64) ([]Installation, error)
}

// PropertyLookup resolves the installation's property.
type PropertyLookup interface {
	Get(ctx context.Context, id int64) (property.Property, error)
}

// Service maintains installation records.
type Service struct {
	repo       Repository
	properties PropertyLookup
	auditor    shared.Auditor
	cache      shared.Invalidator
	clock      shared.Clock
	logger     *slog.Logger
	newID      func() uuid.UUID
}

// NewService builds a Service.
func NewService(repo Repository, properties PropertyLookup, auditor shared.Auditor, cache shared.Invalidator, clock shared.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, properties: properties, auditor: auditor, cache: cache, clock: clock, logger: logger, newID: uuid.New}
}

// Validate checks the input and derives status and revenue for today.
func Validate(in Input, today time.Time) (Installation, error) {
	v := shared.NewValidationError()
	if in.PropertyID <= 0 {
		v.Add("property_id", "is required")
	}
	if strings.TrimSpace(in.Customer) == "" {
		v.Add("customer", "is required")
	}
	if in.StartDate.IsZero() {
		v.Add("start_date", "is required")
	}
	if in.EndDate.IsZero() {
		v.Add("end_date", "is required")
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate.Time) {
		v.Add("end_date", "must not be before start date")
	}
	if !in.Rate.IsPositive() {
		v.Add("rate", "must be greater than zero")
	}
	if in.RateBasis != PerDay && in.RateBasis != PerMonth {
		v.Add("rate_basis", "must be Per Day or Per Month")
	}
	if err := v.Err(); err != nil {
		return Installation{}, err
	}
	return Installation{
		InstallationCode: strings.TrimSpace(in.InstallationCode),
		PropertyID:       in.PropertyID,
		Customer:         strings.TrimSpace(in.Customer),
		Project:          strings.TrimSpace(in.Project),
		MediaType:        strings.TrimSpace(in.MediaType),
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		Rate:             in.Rate,
		RateBasis:        in.RateBasis,
		RentalStatus:     StatusOn(in.StartDate.Time, in.EndDate.Time, today),
		TotalRevenue:     Revenue(in.StartDate.Time, in.EndDate.Time, in.Rate, in.RateBasis, today),
	}, nil
}

func (s *Service) check(ctx context.Context, in Input) (Installation, error) {
	inst, err := Validate(in, s.clock.Today())
	if err != nil {
		return Installation{}, err
	}
	if _, err := s.properties.Get(ctx, in.PropertyID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Installation{}, shared.Invalid("property_id", "does not exist")
		}
		return Installation{}, fmt.Errorf("media: load property: %w", err)
	}
	return inst, nil
}

// Create validates and stores an installation.
func (s *Service) Create(ctx context.Context, in Input) (Installation, error) {
	inst, err := s.check(ctx, in)
	if err != nil {
		return Installation{}, err
	}
	if inst.InstallationCode == "" {
		inst.InstallationCode = "MI-" + strings.ToUpper(strings.ReplaceAll(s.newID().String(), "-", "")[:8])
	}
	created, err := s.repo.Create(ctx, inst)
	if err != nil {
		return Installation{}, fmt.Errorf("media: create: %w", err)
	}
	s.written(ctx, "create", created)
	return created, nil
}

// Update re-validates and recomputes the derived fields.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Installation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Installation{}, err
	}
	inst, err := s.check(ctx, in)
	if err != nil {
		return Installation{}, err
	}
	inst.ID = id
	if inst.InstallationCode == "" {
		inst.InstallationCode = existing.InstallationCode
	}
	updated, err := s.repo.Update(ctx, inst)
	if err != nil {
		return Installation{}, fmt.Errorf("media: update: %w", err)
	}
	s.written(ctx, "update", updated)
	return updated, nil
}

// Get returns an installation.
func (s *Service) Get(ctx context.Context, id int64) (Installation, error) {
	return s.repo.Get(ctx, id)
}

// ListByProperty returns a property's rental history.
func (s *Service) ListByProperty(ctx context.Context, propertyID int64) ([]Installation, error) {
	return s.repo.ListByProperty(ctx, propertyID)
}

func (s *Service) written(ctx context.Context, action string, inst Installation) {
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: shared.ActorFromContext(ctx), Action: action, Entity: "media_installation",
		EntityID: strconv.FormatInt(inst.ID, 10),
		Meta:     map[string]any{"status": inst.RentalStatus, "revenue": inst.TotalRevenue.StringFixed(2)},
	})
	shared.BumpQuietly(ctx, s.cache, s.logger)
}
