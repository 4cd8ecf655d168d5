package property

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// ErrNotFound indicates the property does not exist.
var ErrNotFound = errors.New("property: not found")

// PGRepository provides PostgreSQL backed persistence for properties.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const propertyColumns = `id, code, name, address, city, latitude, longitude, property_type,
	size_sqm, estimated_value, occupancy_status, created_at, updated_at`

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Address, &p.City, &p.Latitude, &p.Longitude, &p.Type,
		&p.SizeSqm, &p.EstimatedValue, &p.Occupancy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, errors.Join(ErrNotFound, shared.ErrNotFound)
	}
	return p, err
}

// Create inserts a property.
func (r *PGRepository) Create(ctx context.Context, p Property) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO properties (code, name, address, city, latitude, longitude, property_type,
			size_sqm, estimated_value, occupancy_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING `+propertyColumns,
		p.Code, p.Name, p.Address, p.City, p.Latitude, p.Longitude, p.Type, p.SizeSqm, p.EstimatedValue, p.Occupancy)
	created, err := scanProperty(row)
	if db.IsUniqueViolation(err) {
		return Property{}, errors.Join(httpx.ErrDuplicate, errors.New("property code "+p.Code+" already exists"))
	}
	return created, err
}

// Update overwrites editable and derived columns.
func (r *PGRepository) Update(ctx context.Context, p Property) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE properties SET code = $2, name = $3, address = $4, city = $5, latitude = $6, longitude = $7,
			property_type = $8, size_sqm = $9, estimated_value = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+propertyColumns,
		p.ID, p.Code, p.Name, p.Address, p.City, p.Latitude, p.Longitude, p.Type, p.SizeSqm, p.EstimatedValue)
	return scanProperty(row)
}

// Get loads a property by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (Property, error) {
	return scanProperty(r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
}

// List uses a dynamic query due to filter combinations.
func (r *PGRepository) List(ctx context.Context, f ListFilter) ([]Property, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where += ` AND ` + clause + `$` + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		add(`property_type = `, f.Type)
	}
	if f.Occupancy != "" {
		add(`occupancy_status = `, f.Occupancy)
	}
	if f.City != "" {
		add(`city ILIKE `, f.City)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR code ILIKE $` + n + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + propertyColumns + ` FROM properties` + where + ` ORDER BY name ASC, id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// SetOccupancy updates the occupancy status only.
func (r *PGRepository) SetOccupancy(ctx context.Context, id int64, status Occupancy) error {
	tag, err := r.pool.Exec(ctx, `UPDATE properties SET occupancy_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(ErrNotFound, shared.ErrNotFound)
	}
	return nil
}
