package risk

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores risk assessments.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Factors implements Repository. Due schedules are those falling due up to
// today; overdue ones are flagged Overdue or still Pending past their date.
func (r *PGRepository) Factors(ctx context.Context, propertyID int64, today time.Time) (Factors, error) {
	var f Factors
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE due_date <= $2),
			COUNT(*) FILTER (WHERE status = 'Overdue' OR (status = 'Pending' AND due_date < $2))
		FROM landlord_payment_schedules
		WHERE property_id = $1`, propertyID, today).Scan(&f.DueSchedules, &f.OverdueSchedules)
	if err != nil {
		return Factors{}, err
	}
	err = r.pool.QueryRow(ctx, `
		SELECT MIN(end_date) FROM landlord_contracts
		WHERE property_id = $1 AND start_date <= $2 AND end_date >= $2`, propertyID, today).Scan(&f.NearestEnd)
	return f, err
}

const assessmentColumns = `a.id, a.property_id, p.name, a.assessed_on, a.overdue_ratio, a.vacant, a.days_to_expiry, a.score, a.level, a.created_at`

func scanAssessment(row pgx.Row) (Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.PropertyID, &a.PropertyName, &a.AssessedOn, &a.OverdueRatio, &a.Vacant, &a.DaysToExpiry, &a.Score, &a.Level, &a.CreatedAt)
	return a, err
}

// Save implements Repository.
func (r *PGRepository) Save(ctx context.Context, a Assessment) (Assessment, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO risk_assessments (property_id, assessed_on, overdue_ratio, vacant, days_to_expiry, score, level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`,
		a.PropertyID, a.AssessedOn, a.OverdueRatio, a.Vacant, a.DaysToExpiry, a.Score, a.Level).Scan(&a.ID, &a.CreatedAt)
	return a, err
}

// History implements Repository.
func (r *PGRepository) History(ctx context.Context, propertyID int64, limit int) ([]Assessment, error) {
	return r.list(ctx, `
		SELECT `+assessmentColumns+`
		FROM risk_assessments a JOIN properties p ON p.id = a.property_id
		WHERE a.property_id = $1
		ORDER BY a.assessed_on DESC, a.id DESC
		LIMIT $2`, propertyID, limit)
}

// Latest implements Repository.
func (r *PGRepository) Latest(ctx context.Context) ([]Assessment, error) {
	return r.list(ctx, `
		SELECT * FROM (
			SELECT DISTINCT ON (a.property_id) `+assessmentColumns+`
			FROM risk_assessments a JOIN properties p ON p.id = a.property_id
			ORDER BY a.property_id, a.assessed_on DESC, a.id DESC
		) latest
		ORDER BY score DESC, property_id`)
}

// PropertyIDs implements Repository.
func (r *PGRepository) PropertyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM properties ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Assessment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
