package property

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// Repository is the persistence port for properties.
type Repository interface {
	Create(ctx context.Context, p Property) (Property, error)
	Update(ctx context.Context, p Property) (Property, error)
	Get(ctx context.Context, id int64) (Property, error)
	List(ctx context.Context, filter ListFilter) ([]Property, int, error)
	SetOccupancy(ctx context.Context, id int64, status Occupancy) error
}

// Service implements the property record lifecycle.
type Service struct {
	repo    Repository
	auditor shared.Auditor
	logger  *slog.Logger
	newID   func() uuid.UUID
}

// NewService builds a Service.
func NewService(repo Repository, auditor shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, auditor: auditor, logger: logger, newID: uuid.New}
}

// Validate checks coordinates, type and size.
func Validate(in Input) error {
	v := shared.NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "is required")
	}
	if !in.Type.Valid() {
		v.Add("property_type", fmt.Sprintf("must be one of %v", Types))
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		v.Add("latitude", "must be between -90 and 90")
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		v.Add("longitude", "must be between -180 and 180")
	}
	if in.SizeSqm.IsNegative() {
		v.Add("size_sqm", "must not be negative")
	}
	return v.Err()
}

// Create validates and inserts a property, deriving its code and valuation.
// New properties start Vacant.
func (s *Service) Create(ctx context.Context, in Input) (Property, error) {
	if err := Validate(in); err != nil {
		return Property{}, err
	}
	p := fromInput(in)
	if p.Code == "" {
		p.Code = DeriveCode(p.Type, p.City, s.newID())
	}
	p.Occupancy = OccupancyVacant
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Property{}, fmt.Errorf("property: create: %w", err)
	}
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: shared.ActorFromContext(ctx), Action: "create", Entity: "property", EntityID: strconv.FormatInt(created.ID, 10),
		Meta: map[string]any{"code": created.Code},
	})
	return created, nil
}

// Update re-validates and recomputes derived fields. Occupancy is owned by the
// contract handler and is left untouched.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Property, error) {
	if err := Validate(in); err != nil {
		return Property{}, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Property{}, err
	}
	p := fromInput(in)
	p.ID = existing.ID
	p.Occupancy = existing.Occupancy
	if p.Code == "" {
		p.Code = existing.Code
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Property{}, fmt.Errorf("property: update: %w", err)
	}
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: shared.ActorFromContext(ctx), Action: "update", Entity: "property", EntityID: strconv.FormatInt(id, 10),
	})
	return updated, nil
}

// Get returns a property by ID.
func (s *Service) Get(ctx context.Context, id int64) (Property, error) {
	if id <= 0 {
		return Property{}, shared.Invalid("id", "must be positive")
	}
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of properties and the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Property, int, error) {
	return s.repo.List(ctx, filter)
}

// SetOccupancy records the occupancy derived from contract statuses.
func (s *Service) SetOccupancy(ctx context.Context, id int64, status Occupancy) error {
	if status != OccupancyVacant && status != OccupancyOccupied {
		return shared.Invalid("occupancy_status", "must be Vacant or Occupied")
	}
	return s.repo.SetOccupancy(ctx, id, status)
}

func fromInput(in Input) Property {
	return Property{
		Code:           strings.TrimSpace(in.Code),
		Name:           strings.TrimSpace(in.Name),
		Address:        strings.TrimSpace(in.Address),
		City:           strings.TrimSpace(in.City),
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Type:           in.Type,
		SizeSqm:        in.SizeSqm,
		EstimatedValue: EstimateValue(in.Type, in.SizeSqm),
	}
}
