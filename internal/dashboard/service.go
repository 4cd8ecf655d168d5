package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// Repository exposes the aggregate queries the dashboard relies on.
type Repository interface {
	LandlordCount(ctx context.Context) (int, error)
	PropertyCounts(ctx context.Context) (PropertyCounts, error)
	ActiveContracts(ctx context.Context, today time.Time) (int, error)
	ScheduleTotals(ctx context.Context) ([]StatusTotal, error)
	UpcomingDues(ctx context.Context, from, until time.Time) ([]UpcomingDue, error)
	ActiveAmountsByFrequency(ctx context.Context, today time.Time) (map[billing.Frequency]decimal.Decimal, error)
	ProjectSummary(ctx context.Context, project string) (ProjectSummary, error)
}

// Service coordinates dashboard queries with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	clock  shared.Clock
	logger *slog.Logger
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, clock: clock, logger: logger}
}

// Stats returns the dashboard statistics for today.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	today := s.clock.Today()
	key, err := s.cache.BuildKey(ctx, "dashboard", "stats", dayKey(today))
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: cache key: %w", err)
	}
	var out Stats
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.loadStats(ctx, today)
	})
	return out, err
}

func (s *Service) loadStats(ctx context.Context, today time.Time) (Stats, error) {
	stats := Stats{AsOf: shared.NewDate(today)}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repo.LandlordCount(ctx)
		if err != nil {
			return fmt.Errorf("dashboard: landlords: %w", err)
		}
		stats.Landlords = n
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.PropertyCounts(ctx)
		if err != nil {
			return fmt.Errorf("dashboard: properties: %w", err)
		}
		stats.Properties = counts
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.ActiveContracts(ctx, today)
		if err != nil {
			return fmt.Errorf("dashboard: active contracts: %w", err)
		}
		stats.ActiveContracts = n
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.ScheduleTotals(ctx)
		if err != nil {
			return fmt.Errorf("dashboard: schedule totals: %w", err)
		}
		stats.Schedules = totals
		return nil
	})
	g.Go(func() error {
		dues, err := s.repo.UpcomingDues(ctx, today, today.AddDate(0, 0, UpcomingWindowDays))
		if err != nil {
			return fmt.Errorf("dashboard: upcoming dues: %w", err)
		}
		stats.UpcomingDues = dues
		return nil
	})
	g.Go(func() error {
		amounts, err := s.repo.ActiveAmountsByFrequency(ctx, today)
		if err != nil {
			return fmt.Errorf("dashboard: income: %w", err)
		}
		stats.IncomeByFrequency = amounts
		return nil
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	stats.MonthlyIncome = MonthlyIncome(stats.IncomeByFrequency)
	if stats.Schedules == nil {
		stats.Schedules = []StatusTotal{}
	}
	if stats.UpcomingDues == nil {
		stats.UpcomingDues = []UpcomingDue{}
	}
	return stats, nil
}

// ProjectSummary totals customer invoicing for a project.
func (s *Service) ProjectSummary(ctx context.Context, project string) (ProjectSummary, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return ProjectSummary{}, shared.Invalid("project", "is required")
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "project", project)
	if err != nil {
		return ProjectSummary{}, fmt.Errorf("dashboard: cache key: %w", err)
	}
	var out ProjectSummary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		summary, err := s.repo.ProjectSummary(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("dashboard: project summary: %w", err)
		}
		summary.Outstanding = summary.Invoiced.Sub(summary.Paid)
		return summary, nil
	})
	return out, err
}
