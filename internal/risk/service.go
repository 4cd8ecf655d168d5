package risk

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

const (
	defaultTopN       = 5
	defaultHistoryMax = 50
)

// Repository is the persistence port for risk assessments.
type Repository interface {
	Factors(ctx context.Context, propertyID int64, today time.Time) (Factors, error)
	Save(ctx context.Context, a Assessment) (Assessment, error)
	History(ctx context.Context, propertyID int64, limit int) ([]Assessment, error)
	Latest(ctx context.Context) ([]Assessment, error)
	PropertyIDs(ctx context.Context) ([]int64, error)
}

// PropertyLookup resolves the assessed property.
type PropertyLookup interface {
	Get(ctx context.Context, id int64) (property.Property, error)
}

// Service scores properties and reports on the history.
type Service struct {
	repo       Repository
	properties PropertyLookup
	auditor    shared.Auditor
	cache      shared.Invalidator
	clock      shared.Clock
	logger     *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, properties PropertyLookup, auditor shared.Auditor, cache shared.Invalidator, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, properties: properties, auditor: auditor, cache: cache, clock: clock, logger: logger}
}

// Assess scores a property as of today and stores the result.
func (s *Service) Assess(ctx context.Context, propertyID int64) (Assessment, error) {
	return s.assess(ctx, propertyID, s.clock.Today())
}

func (s *Service) assess(ctx context.Context, propertyID int64, today time.Time) (Assessment, error) {
	prop, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return Assessment{}, err
	}
	factors, err := s.repo.Factors(ctx, propertyID, today)
	if err != nil {
		return Assessment{}, fmt.Errorf("risk: load factors: %w", err)
	}
	factors.Vacant = prop.Occupancy == property.OccupancyVacant
	saved, err := s.repo.Save(ctx, Score(propertyID, factors, today))
	if err != nil {
		return Assessment{}, fmt.Errorf("risk: save: %w", err)
	}
	saved.PropertyName = prop.Name
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: shared.ActorFromContext(ctx), Action: "assess", Entity: "property",
		EntityID: strconv.FormatInt(propertyID, 10),
		Meta:     map[string]any{"score": saved.Score, "level": saved.Level},
	})
	shared.BumpQuietly(ctx, s.cache, s.logger)
	return saved, nil
}

// AssessAll scores every property. A failing property is logged and skipped.
func (s *Service) AssessAll(ctx context.Context) (int, error) {
	ids, err := s.repo.PropertyIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("risk: list properties: %w", err)
	}
	today := s.clock.Today()
	var assessed int
	var errs []error
	for _, id := range ids {
		if _, err := s.assess(ctx, id, today); err != nil {
			s.logger.Warn("risk assessment failed", slog.Int64("property_id", id), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		assessed++
	}
	if assessed == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return assessed, nil
}

// History returns a property's assessments, newest first.
func (s *Service) History(ctx context.Context, propertyID int64, limit int) ([]Assessment, error) {
	if _, err := s.properties.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultHistoryMax {
		limit = defaultHistoryMax
	}
	return s.repo.History(ctx, propertyID, limit)
}

// Analytics summarises the latest assessment per property.
func (s *Service) Analytics(ctx context.Context, topN int) (Analytics, error) {
	if topN <= 0 {
		topN = defaultTopN
	}
	latest, err := s.repo.Latest(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("risk: latest assessments: %w", err)
	}
	return Summarise(latest, topN), nil
}

// Summarise builds analytics from one assessment per property.
func Summarise(latest []Assessment, topN int) Analytics {
	latest = slices.Clone(latest)
	slices.SortStableFunc(latest, func(a, b Assessment) int {
		return cmp.Compare(b.Score, a.Score)
	})
	out := Analytics{Counts: map[Level]int{}, TopRisky: []Assessment{}}
	for _, l := range Levels {
		out.Counts[l] = 0
	}
	var total float64
	for _, a := range latest {
		out.Counts[a.Level]++
		total += a.Score
	}
	out.Assessed = len(latest)
	if out.Assessed > 0 {
		out.AverageScore = round2(total / float64(out.Assessed))
	}
	for _, a := range latest {
		if len(out.TopRisky) == topN {
			break
		}
		if a.Level == LevelLow {
			continue
		}
		out.TopRisky = append(out.TopRisky, a)
	}
	return out
}
