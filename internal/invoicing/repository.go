package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// PGRepository stores customer invoicing schedules.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const scheduleColumns = `id, customer, COALESCE(customer_email, ''), project, installation_id, due_date, amount, status,
	sales_order_id, sales_invoice_id, COALESCE(last_error, ''), reminder_sent_at, created_at, updated_at`

func scan(row pgx.Row, id int64) (Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.Customer, &s.CustomerEmail, &s.Project, &s.InstallationID, &s.DueDate, &s.Amount, &s.Status,
		&s.SalesOrderID, &s.SalesInvoiceID, &s.LastError, &s.ReminderSentAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, fmt.Errorf("%w: schedule %d: %w", ErrNotFound, id, shared.ErrNotFound)
	}
	return s, err
}

// Create implements Repository.
func (r *PGRepository) Create(ctx context.Context, s Schedule) (Schedule, error) {
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO customer_invoicing_schedules (customer, customer_email, project, installation_id, due_date, amount, status, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+scheduleColumns,
		s.Customer, s.CustomerEmail, s.Project, s.InstallationID, s.DueDate, s.Amount, s.Status), 0)
}

// Update implements Repository.
func (r *PGRepository) Update(ctx context.Context, s Schedule) (Schedule, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE customer_invoicing_schedules SET customer = $2, customer_email = NULLIF($3, ''), project = $4,
			installation_id = $5, due_date = $6, amount = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+scheduleColumns,
		s.ID, s.Customer, s.CustomerEmail, s.Project, s.InstallationID, s.DueDate, s.Amount), s.ID)
}

// Get implements Repository.
func (r *PGRepository) Get(ctx context.Context, id int64) (Schedule, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM customer_invoicing_schedules WHERE id = $1`, id), id)
}

// Candidates implements Repository.
func (r *PGRepository) Candidates(ctx context.Context) ([]Schedule, error) {
	return r.list(ctx, `SELECT `+scheduleColumns+` FROM customer_invoicing_schedules
		WHERE status IN ('Pending', 'Overdue') AND sales_invoice_id IS NULL ORDER BY due_date, id`)
}

// ReminderCandidates implements Repository.
func (r *PGRepository) ReminderCandidates(ctx context.Context, today, until time.Time) ([]Schedule, error) {
	return r.list(ctx, `SELECT `+scheduleColumns+` FROM customer_invoicing_schedules
		WHERE status <> 'Paid' AND customer_email IS NOT NULL
			AND (status = 'Overdue' OR due_date <= $2)
			AND (reminder_sent_at IS NULL OR reminder_sent_at < $1)
		ORDER BY due_date, id`, today, until)
}

// MarkReminded implements Repository.
func (r *PGRepository) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE customer_invoicing_schedules SET reminder_sent_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Schedule
	for rows.Next() {
		s, err := scan(rows, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LinkInvoice implements Repository.
func (r *PGRepository) LinkInvoice(ctx context.Context, id, orderID, invoiceID int64) (Schedule, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE customer_invoicing_schedules SET sales_order_id = $2, sales_invoice_id = $3, status = 'Invoice Created',
			last_error = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING `+scheduleColumns, id, orderID, invoiceID), id)
}

// RecordError implements Repository.
func (r *PGRepository) RecordError(ctx context.Context, id int64, msg string) error {
	_, err := r.pool.Exec(ctx, `UPDATE customer_invoicing_schedules SET last_error = $2, updated_at = NOW() WHERE id = $1`, id, msg)
	return err
}

// SetStatus implements Repository.
func (r *PGRepository) SetStatus(ctx context.Context, id int64, status Status) (Schedule, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE customer_invoicing_schedules SET status = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+scheduleColumns, id, status), id)
}
