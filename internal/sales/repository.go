package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// PGRepository stores orders and invoices.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// docNumber renders numbers like SO-2024-00042 from a sequence value.
func docNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

const orderColumns = `id, number, customer, project, order_date, total, status, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.Customer, &o.Project, &o.OrderDate, &o.Total, &o.Status, &o.CreatedAt)
	return o, err
}

// FindOrder implements Repository.
func (r *PGRepository) FindOrder(ctx context.Context, customer, project string) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders
		WHERE customer = $1 AND project = $2 ORDER BY id LIMIT 1`, customer, project))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// CreateOrder implements Repository.
func (r *PGRepository) CreateOrder(ctx context.Context, o Order) (Order, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('sales_order_number_seq')`).Scan(&seq); err != nil {
		return Order{}, err
	}
	o.Number = docNumber("SO", o.OrderDate.Year(), seq)
	created, err := scanOrder(r.pool.QueryRow(ctx, `
		INSERT INTO sales_orders (number, customer, project, order_date, total, status, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, NOW())
		ON CONFLICT (customer, project) DO NOTHING
		RETURNING `+orderColumns, o.Number, o.Customer, o.Project, o.OrderDate, o.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.FindOrder(ctx, o.Customer, o.Project)
	}
	return created, err
}

// InvoiceForSchedule implements Repository.
func (r *PGRepository) InvoiceForSchedule(ctx context.Context, scheduleID int64) (Invoice, Order, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, sales_order_id, customer, project, schedule_id, posting_date, due_date, amount, status, created_at
		FROM sales_invoices WHERE schedule_id = $1 ORDER BY id LIMIT 1`, scheduleID).
		Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.Customer, &inv.Project, &inv.ScheduleID,
			&inv.PostingDate, &inv.DueDate, &inv.Amount, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, Order{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, Order{}, err
	}
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1`, inv.OrderID))
	if err != nil {
		return Invoice{}, Order{}, fmt.Errorf("order %d: %w", inv.OrderID, err)
	}
	return inv, order, nil
}

// CreateInvoice implements Repository.
func (r *PGRepository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('sales_invoice_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		inv.Number = docNumber("SINV", inv.PostingDate.Year(), seq)
		err := tx.QueryRow(ctx, `
			INSERT INTO sales_invoices (number, sales_order_id, customer, project, schedule_id, posting_date, due_date, amount, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			RETURNING id, created_at`,
			inv.Number, inv.OrderID, inv.Customer, inv.Project, inv.ScheduleID, inv.PostingDate, inv.DueDate, inv.Amount, inv.Status).
			Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE sales_orders SET total = total + $2 WHERE id = $1`, inv.OrderID, inv.Amount)
		return err
	})
	return inv, err
}

// MarkInvoicePaid implements Repository.
func (r *PGRepository) MarkInvoicePaid(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sales_invoices SET status = 'Paid' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d: %w", ErrNotFound, id, shared.ErrNotFound)
	}
	return nil
}
