package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
)

// PGRepository runs the dashboard aggregate queries.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// LandlordCount implements Repository.
func (r *PGRepository) LandlordCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM landlords`).Scan(&n)
	return n, err
}

// PropertyCounts implements Repository.
func (r *PGRepository) PropertyCounts(ctx context.Context) (PropertyCounts, error) {
	counts := PropertyCounts{ByOccupancy: map[string]int{}, ByType: map[string]int{}}
	rows, err := r.pool.Query(ctx, `
		SELECT occupancy_status, property_type, COUNT(*)
		FROM properties
		GROUP BY occupancy_status, property_type`)
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var occupancy, kind string
		var n int
		if err := rows.Scan(&occupancy, &kind, &n); err != nil {
			return counts, err
		}
		counts.Total += n
		counts.ByOccupancy[occupancy] += n
		counts.ByType[kind] += n
	}
	return counts, rows.Err()
}

// ActiveContracts implements Repository.
func (r *PGRepository) ActiveContracts(ctx context.Context, today time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM landlord_contracts WHERE start_date <= $1 AND end_date >= $1`, today).Scan(&n)
	return n, err
}

// ScheduleTotals implements Repository.
func (r *PGRepository) ScheduleTotals(ctx context.Context) ([]StatusTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM landlord_payment_schedules
		GROUP BY status
		ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusTotal
	for rows.Next() {
		var t StatusTotal
		if err := rows.Scan(&t.Status, &t.Count, &t.Amount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpcomingDues implements Repository.
func (r *PGRepository) UpcomingDues(ctx context.Context, from, until time.Time) ([]UpcomingDue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.due_date, s.amount, s.status, l.legal_name, p.name
		FROM landlord_payment_schedules s
		JOIN landlords l ON l.id = s.landlord_id
		JOIN properties p ON p.id = s.property_id
		WHERE s.status <> 'Paid' AND s.due_date BETWEEN $1 AND $2
		ORDER BY s.due_date, s.id`, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UpcomingDue
	for rows.Next() {
		var d UpcomingDue
		if err := rows.Scan(&d.ScheduleID, &d.DueDate, &d.Amount, &d.Status, &d.LandlordName, &d.PropertyName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ActiveAmountsByFrequency implements Repository.
func (r *PGRepository) ActiveAmountsByFrequency(ctx context.Context, today time.Time) (map[billing.Frequency]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_frequency, COALESCE(SUM(current_rent), 0)
		FROM landlord_contracts
		WHERE start_date <= $1 AND end_date >= $1
		GROUP BY payment_frequency`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[billing.Frequency]decimal.Decimal{}
	for rows.Next() {
		var f billing.Frequency
		var amount decimal.Decimal
		if err := rows.Scan(&f, &amount); err != nil {
			return nil, err
		}
		out[f] = amount
	}
	return out, rows.Err()
}

// ProjectSummary implements Repository.
func (r *PGRepository) ProjectSummary(ctx context.Context, project string) (ProjectSummary, error) {
	s := ProjectSummary{Project: project}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE sales_invoice_id IS NOT NULL), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'Paid'), 0)
		FROM customer_invoicing_schedules
		WHERE project = $1`, project).Scan(&s.Schedules, &s.Scheduled, &s.Invoiced, &s.Paid)
	return s, err
}
