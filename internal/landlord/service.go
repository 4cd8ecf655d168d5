package landlord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
	"github.com/odyssey-erp/odyssey-rentals/internal/workflow"
)

// ErrNotFound indicates the landlord or schedule does not exist.
var ErrNotFound = errors.New("landlord: not found")

// ScheduleFilter selects schedules for totals.
type ScheduleFilter struct {
	LandlordID int64
	PropertyID int64
}

// Repository is the persistence port for landlords and their contracts.
type Repository interface {
	GetLandlord(ctx context.Context, id int64) (Landlord, error)
	// SaveLandlord upserts the landlord and its contracts and deletes the
	// removed contracts, in one transaction.
	SaveLandlord(ctx context.Context, l Landlord, removed []int64) (Landlord, error)
	ContractsForProperty(ctx context.Context, propertyID int64) ([]Contract, error)
	CountPaid(ctx context.Context, contractID int64) (int, error)
	// ReplaceUnpaidSchedules deletes the property's non-Paid rows and inserts
	// rows, skipping those whose due date falls in a period a Paid row of the
	// same contract already covers.
	ReplaceUnpaidSchedules(ctx context.Context, propertyID int64, rows []PaymentSchedule) (int, error)
	Totals(ctx context.Context, filter ScheduleFilter) (ScheduleTotals, error)
	UpcomingSchedules(ctx context.Context, propertyID int64, limit int) ([]PaymentSchedule, error)
}

// PropertyStore is the slice of the property service the contract handler uses.
type PropertyStore interface {
	Get(ctx context.Context, id int64) (property.Property, error)
	SetOccupancy(ctx context.Context, id int64, status property.Occupancy) error
}

// Service owns landlord saves and the contract cascade.
type Service struct {
	repo       Repository
	properties PropertyStore
	auditor    shared.Auditor
	cache      shared.Invalidator
	clock      shared.Clock
	logger     *slog.Logger
	newID      func() uuid.UUID
}

// ServiceConfig wires Service dependencies. Auditor and Cache are optional.
type ServiceConfig struct {
	Repository Repository
	Properties PropertyStore
	Auditor    shared.Auditor
	Cache      shared.Invalidator
	Clock      shared.Clock
	Logger     *slog.Logger
}

// NewService builds a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock{}
	}
	return &Service{
		repo:       cfg.Repository,
		properties: cfg.Properties,
		auditor:    cfg.Auditor,
		cache:      cfg.Cache,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		newID:      uuid.New,
	}
}

// Save creates (id == 0) or updates a landlord. Contract rows are validated
// and checked for overlaps before anything is written. After the save, every
// property whose contracts changed gets its unpaid schedules regenerated and
// its occupancy refreshed; failures there are returned as notices.
func (s *Service) Save(ctx context.Context, id int64, in Input) (SaveResult, error) {
	today := s.clock.Today()

	var existing Landlord
	if id > 0 {
		var err error
		existing, err = s.repo.GetLandlord(ctx, id)
		if err != nil {
			return SaveResult{}, err
		}
	}
	prior := make(map[int64]Contract, len(existing.Contracts))
	for _, c := range existing.Contracts {
		prior[c.ID] = c
	}

	v := shared.NewValidationError()
	checkHeader(in, v)
	contracts := make([]Contract, len(in.Contracts))
	kept := map[int64]bool{}
	for i, ci := range in.Contracts {
		c := contractFromInput(ci)
		c.LandlordID = id
		if c.ID != 0 {
			if _, ok := prior[c.ID]; !ok {
				v.Add(fmt.Sprintf("contracts[%d].id", i), "does not belong to this landlord")
			}
			kept[c.ID] = true
		}
		checkContract(i, c, v)
		if c.PropertyID > 0 {
			if _, err := s.properties.Get(ctx, c.PropertyID); err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					return SaveResult{}, fmt.Errorf("landlord: load property %d: %w", c.PropertyID, err)
				}
				v.Add(fmt.Sprintf("contracts[%d].property_id", i), "does not exist")
			}
		}
		contracts[i] = c
	}
	if err := checkOverlaps(ctx, s.repo, id, contracts, v); err != nil {
		return SaveResult{}, err
	}

	var removed []Contract
	for _, c := range existing.Contracts {
		if kept[c.ID] {
			continue
		}
		paid, err := s.repo.CountPaid(ctx, c.ID)
		if err != nil {
			return SaveResult{}, fmt.Errorf("landlord: count paid schedules: %w", err)
		}
		if paid > 0 {
			v.Add("contracts", fmt.Sprintf("contract %d has %d paid schedules and cannot be removed", c.ID, paid))
		}
		removed = append(removed, c)
	}
	if err := v.Err(); err != nil {
		return SaveResult{}, err
	}

	for i := range contracts {
		contracts[i] = derive(contracts[i], today)
	}
	l := Landlord{
		ID:            id,
		Code:          strings.TrimSpace(in.Code),
		LegalName:     strings.TrimSpace(in.LegalName),
		TaxID:         strings.TrimSpace(in.TaxID),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
		WorkflowState: existing.WorkflowState,
		Contracts:     contracts,
	}
	if l.Code == "" {
		l.Code = existing.Code
	}
	if l.Code == "" {
		l.Code = "LL-" + strings.ToUpper(strings.ReplaceAll(s.newID().String(), "-", "")[:8])
	}
	if l.WorkflowState == "" {
		l.WorkflowState = string(workflow.StateDraft)
	}

	removedIDs := make([]int64, len(removed))
	for i, c := range removed {
		removedIDs[i] = c.ID
	}
	saved, err := s.repo.SaveLandlord(ctx, l, removedIDs)
	if err != nil {
		return SaveResult{}, fmt.Errorf("landlord: save: %w", err)
	}

	regen := map[int64]bool{}
	touched := map[int64]bool{}
	for _, c := range saved.Contracts {
		touched[c.PropertyID] = true
		p, ok := prior[c.ID]
		if ok && c.sameTerms(p) {
			continue
		}
		regen[c.PropertyID] = true
		if ok && p.PropertyID != c.PropertyID {
			regen[p.PropertyID] = true
			touched[p.PropertyID] = true
		}
	}
	for _, c := range removed {
		regen[c.PropertyID] = true
		touched[c.PropertyID] = true
	}

	result := SaveResult{Landlord: saved}
	for _, pid := range sortedKeys(regen) {
		n, err := s.RegenerateSchedules(ctx, pid, today)
		if err != nil {
			s.logger.Error("regenerate payment schedules", slog.Int64("property_id", pid), slog.Any("error", err))
			result.Notices.Warn(fmt.Sprintf("Payment schedules for property %d could not be regenerated: %s", pid, shared.UserSafeMessage(err)))
			continue
		}
		result.Notices.Info(fmt.Sprintf("Generated %d payment schedule rows for property %d", n, pid))
	}
	for _, pid := range sortedKeys(touched) {
		if err := s.refreshOccupancy(ctx, pid, today); err != nil {
			s.logger.Error("refresh occupancy", slog.Int64("property_id", pid), slog.Any("error", err))
			result.Notices.Warn(fmt.Sprintf("Occupancy of property %d could not be updated", pid))
		}
	}

	action := "update"
	if id == 0 {
		action = "create"
	}
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: shared.ActorFromContext(ctx), Action: action, Entity: "landlord", EntityID: strconv.FormatInt(saved.ID, 10),
		Meta: map[string]any{"contracts": len(saved.Contracts), "removed": removedIDs},
	})
	shared.BumpQuietly(ctx, s.cache, s.logger)
	return result, nil
}

// RegenerateSchedules rebuilds the unpaid schedule rows of every contract on
// the property and returns how many rows were inserted.
func (s *Service) RegenerateSchedules(ctx context.Context, propertyID int64, today time.Time) (int, error) {
	contracts, err := s.repo.ContractsForProperty(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	var rows []PaymentSchedule
	for _, c := range contracts {
		plan := c.Plan()
		entries, err := billing.Generate(plan, today)
		if err != nil {
			return 0, fmt.Errorf("contract %d: %w", c.ID, err)
		}
		for _, e := range entries {
			rows = append(rows, PaymentSchedule{
				ContractID:   c.ID,
				LandlordID:   c.LandlordID,
				PropertyID:   c.PropertyID,
				PeriodIndex:  e.Index,
				PeriodMonths: plan.Frequency.Months(),
				DueDate:      shared.NewDate(e.DueDate),
				Amount:       e.Amount,
				Status:       ScheduleStatus(e.Status),
			})
		}
	}
	return s.repo.ReplaceUnpaidSchedules(ctx, propertyID, rows)
}

// refreshOccupancy marks the property Occupied when any of its contracts
// covers today.
func (s *Service) refreshOccupancy(ctx context.Context, propertyID int64, today time.Time) error {
	contracts, err := s.repo.ContractsForProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	status := property.OccupancyVacant
	for _, c := range contracts {
		if statusOn(c, today) == ContractActive {
			status = property.OccupancyOccupied
			break
		}
	}
	return s.properties.SetOccupancy(ctx, propertyID, status)
}

// Detail returns the landlord with contracts and schedule totals.
func (s *Service) Detail(ctx context.Context, id int64) (Detail, error) {
	l, err := s.repo.GetLandlord(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	totals, err := s.repo.Totals(ctx, ScheduleFilter{LandlordID: id})
	if err != nil {
		return Detail{}, fmt.Errorf("landlord: totals: %w", err)
	}
	return Detail{Landlord: l, Totals: totals}, nil
}

// PropertyDetail returns the property with its contracts, next unpaid
// schedules and totals.
func (s *Service) PropertyDetail(ctx context.Context, propertyID int64) (PropertyDetail, error) {
	p, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return PropertyDetail{}, err
	}
	contracts, err := s.repo.ContractsForProperty(ctx, propertyID)
	if err != nil {
		return PropertyDetail{}, fmt.Errorf("landlord: property contracts: %w", err)
	}
	upcoming, err := s.repo.UpcomingSchedules(ctx, propertyID, 12)
	if err != nil {
		return PropertyDetail{}, fmt.Errorf("landlord: upcoming schedules: %w", err)
	}
	totals, err := s.repo.Totals(ctx, ScheduleFilter{PropertyID: propertyID})
	if err != nil {
		return PropertyDetail{}, fmt.Errorf("landlord: totals: %w", err)
	}
	if contracts == nil {
		contracts = []Contract{}
	}
	if upcoming == nil {
		upcoming = []PaymentSchedule{}
	}
	return PropertyDetail{Property: p, Contracts: contracts, Schedules: upcoming, Totals: totals}, nil
}

func contractFromInput(in ContractInput) Contract {
	return Contract{
		ID:                  in.ID,
		PropertyID:          in.PropertyID,
		RentalAmount:        in.RentalAmount,
		PaymentFrequency:    in.PaymentFrequency,
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		EscalationPercent:   in.EscalationPercent,
		EscalationFrequency: in.EscalationFrequency,
	}
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
