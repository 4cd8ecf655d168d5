package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// PGRepository stores media installations.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const columns = `id, installation_code, property_id, customer, project, media_type, start_date, end_date,
	rate, rate_basis, total_revenue, rental_status, created_at, updated_at`

func scan(row pgx.Row) (Installation, error) {
	var i Installation
	err := row.Scan(&i.ID, &i.InstallationCode, &i.PropertyID, &i.Customer, &i.Project, &i.MediaType, &i.StartDate, &i.EndDate,
		&i.Rate, &i.RateBasis, &i.TotalRevenue, &i.RentalStatus, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Installation{}, fmt.Errorf("%w: %w", ErrNotFound, shared.ErrNotFound)
	}
	return i, err
}

// Create implements Repository.
func (r *PGRepository) Create(ctx context.Context, i Installation) (Installation, error) {
	created, err := scan(r.pool.QueryRow(ctx, `
		INSERT INTO media_installations (installation_code, property_id, customer, project, media_type, start_date, end_date,
			rate, rate_basis, total_revenue, rental_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING `+columns,
		i.InstallationCode, i.PropertyID, i.Customer, i.Project, i.MediaType, i.StartDate, i.EndDate,
		i.Rate, i.RateBasis, i.TotalRevenue, i.RentalStatus))
	if db.IsUniqueViolation(err) {
		return Installation{}, fmt.Errorf("%w: installation code %s already exists", httpx.ErrDuplicate, i.InstallationCode)
	}
	return created, err
}

// Update implements Repository.
func (r *PGRepository) Update(ctx context.Context, i Installation) (Installation, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE media_installations SET installation_code = $2, property_id = $3, customer = $4, project = $5, media_type = $6,
			start_date = $7, end_date = $8, rate = $9, rate_basis = $10, total_revenue = $11, rental_status = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING `+columns,
		i.ID, i.InstallationCode, i.PropertyID, i.Customer, i.Project, i.MediaType, i.StartDate, i.EndDate,
		i.Rate, i.RateBasis, i.TotalRevenue, i.RentalStatus))
}

// Get implements Repository.
func (r *PGRepository) Get(ctx context.Context, id int64) (Installation, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM media_installations WHERE id = $1`, id))
}

// ListByProperty implements Repository.
func (r *PGRepository) ListByProperty(ctx context.Context, propertyID int64) ([]Installation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM media_installations WHERE property_id = $1 ORDER BY start_date DESC, id DESC`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Installation
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
