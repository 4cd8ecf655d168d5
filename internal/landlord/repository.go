package landlord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// PGRepository stores landlords, contracts and payment schedules.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d: %w", ErrNotFound, what, id, shared.ErrNotFound)
}

const landlordColumns = `id, code, legal_name, tax_id, email, phone, address, workflow_state, created_at, updated_at`

const contractColumns = `id, landlord_id, property_id, rental_amount, payment_frequency, start_date, end_date,
	escalation_percent, COALESCE(escalation_frequency, ''), current_rent, status`

const scheduleColumns = `id, contract_id, landlord_id, property_id, period_index, period_months, due_date, amount, status,
	paid_on, COALESCE(payment_reference, ''), reminder_sent_at`

func scanLandlord(row pgx.Row) (Landlord, error) {
	var l Landlord
	err := row.Scan(&l.ID, &l.Code, &l.LegalName, &l.TaxID, &l.Email, &l.Phone, &l.Address, &l.WorkflowState, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.LandlordID, &c.PropertyID, &c.RentalAmount, &c.PaymentFrequency, &c.StartDate, &c.EndDate,
		&c.EscalationPercent, &c.EscalationFrequency, &c.CurrentRent, &c.Status)
	return c, err
}

func scanSchedule(row pgx.Row) (PaymentSchedule, error) {
	var s PaymentSchedule
	err := row.Scan(&s.ID, &s.ContractID, &s.LandlordID, &s.PropertyID, &s.PeriodIndex, &s.PeriodMonths, &s.DueDate, &s.Amount, &s.Status,
		&s.PaidOn, &s.PaymentReference, &s.ReminderSentAt)
	return s, err
}

func collectContracts(rows pgx.Rows) ([]Contract, error) {
	defer rows.Close()
	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetLandlord loads a landlord with its contracts.
func (r *PGRepository) GetLandlord(ctx context.Context, id int64) (Landlord, error) {
	l, err := scanLandlord(r.pool.QueryRow(ctx, `SELECT `+landlordColumns+` FROM landlords WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Landlord{}, notFound("landlord", id)
	}
	if err != nil {
		return Landlord{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+contractColumns+` FROM landlord_contracts WHERE landlord_id = $1 ORDER BY start_date, id`, id)
	if err != nil {
		return Landlord{}, err
	}
	l.Contracts, err = collectContracts(rows)
	return l, err
}

// SaveLandlord implements Repository.
func (r *PGRepository) SaveLandlord(ctx context.Context, l Landlord, removed []int64) (Landlord, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var row pgx.Row
		if l.ID == 0 {
			row = tx.QueryRow(ctx, `
				INSERT INTO landlords (code, legal_name, tax_id, email, phone, address, workflow_state, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
				RETURNING `+landlordColumns,
				l.Code, l.LegalName, l.TaxID, l.Email, l.Phone, l.Address, l.WorkflowState)
		} else {
			row = tx.QueryRow(ctx, `
				UPDATE landlords SET code = $2, legal_name = $3, tax_id = $4, email = $5, phone = $6, address = $7, updated_at = NOW()
				WHERE id = $1
				RETURNING `+landlordColumns,
				l.ID, l.Code, l.LegalName, l.TaxID, l.Email, l.Phone, l.Address)
		}
		saved, err := scanLandlord(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("landlord", l.ID)
		}
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: landlord code %s already exists", httpx.ErrDuplicate, l.Code)
		}
		if err != nil {
			return err
		}

		if len(removed) > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM landlord_contracts WHERE landlord_id = $1 AND id = ANY($2)`, saved.ID, removed); err != nil {
				return fmt.Errorf("delete contracts: %w", err)
			}
		}

		for _, c := range l.Contracts {
			var crow pgx.Row
			if c.ID == 0 {
				crow = tx.QueryRow(ctx, `
					INSERT INTO landlord_contracts (landlord_id, property_id, rental_amount, payment_frequency, start_date, end_date,
						escalation_percent, escalation_frequency, current_rent, status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, NOW(), NOW())
					RETURNING `+contractColumns,
					saved.ID, c.PropertyID, c.RentalAmount, c.PaymentFrequency, c.StartDate, c.EndDate,
					c.EscalationPercent, string(c.EscalationFrequency), c.CurrentRent, c.Status)
			} else {
				crow = tx.QueryRow(ctx, `
					UPDATE landlord_contracts SET property_id = $3, rental_amount = $4, payment_frequency = $5, start_date = $6,
						end_date = $7, escalation_percent = $8, escalation_frequency = NULLIF($9, ''), current_rent = $10,
						status = $11, updated_at = NOW()
					WHERE id = $1 AND landlord_id = $2
					RETURNING `+contractColumns,
					c.ID, saved.ID, c.PropertyID, c.RentalAmount, c.PaymentFrequency, c.StartDate, c.EndDate,
					c.EscalationPercent, string(c.EscalationFrequency), c.CurrentRent, c.Status)
			}
			sc, err := scanContract(crow)
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("contract", c.ID)
			}
			if err != nil {
				return fmt.Errorf("save contract: %w", err)
			}
			saved.Contracts = append(saved.Contracts, sc)
		}
		l = saved
		return nil
	})
	return l, err
}

// ContractsForProperty lists every contract on a property.
func (r *PGRepository) ContractsForProperty(ctx context.Context, propertyID int64) ([]Contract, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+contractColumns+` FROM landlord_contracts WHERE property_id = $1 ORDER BY start_date, id`, propertyID)
	if err != nil {
		return nil, err
	}
	return collectContracts(rows)
}

// CountPaid counts Paid schedule rows of a contract.
func (r *PGRepository) CountPaid(ctx context.Context, contractID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM landlord_payment_schedules WHERE contract_id = $1 AND status = 'Paid'`, contractID).Scan(&n)
	return n, err
}

// ReplaceUnpaidSchedules implements Repository.
func (r *PGRepository) ReplaceUnpaidSchedules(ctx context.Context, propertyID int64, rows []PaymentSchedule) (int, error) {
	inserted := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		paidRows, err := tx.Query(ctx, `SELECT `+scheduleColumns+` FROM landlord_payment_schedules
			WHERE property_id = $1 AND status = 'Paid' FOR UPDATE`, propertyID)
		if err != nil {
			return fmt.Errorf("load paid schedules: %w", err)
		}
		paid, err := pgx.CollectRows(paidRows, func(row pgx.CollectableRow) (PaymentSchedule, error) {
			return scanSchedule(row)
		})
		if err != nil {
			return fmt.Errorf("load paid schedules: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM landlord_payment_schedules WHERE property_id = $1 AND status <> 'Paid'`, propertyID); err != nil {
			return fmt.Errorf("delete unpaid schedules: %w", err)
		}
		fresh := uncovered(rows, paid)
		if len(fresh) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, s := range fresh {
			batch.Queue(`
				INSERT INTO landlord_payment_schedules (contract_id, landlord_id, property_id, period_index, period_months, due_date, amount, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
				ON CONFLICT (contract_id, due_date) DO NOTHING`,
				s.ContractID, s.LandlordID, s.PropertyID, s.PeriodIndex, s.PeriodMonths, s.DueDate, s.Amount, s.Status)
		}
		br := tx.SendBatch(ctx, batch)
		for range fresh {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("insert schedule: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return br.Close()
	})
	return inserted, err
}

// Totals sums schedule amounts by status.
func (r *PGRepository) Totals(ctx context.Context, f ScheduleFilter) (ScheduleTotals, error) {
	column, id := "landlord_id", f.LandlordID
	if f.PropertyID > 0 {
		column, id = "property_id", f.PropertyID
	}
	var t ScheduleTotals
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(amount) FILTER (WHERE status = 'Pending'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'Overdue'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'Paid'), 0),
			MIN(due_date) FILTER (WHERE status <> 'Paid')
		FROM landlord_payment_schedules WHERE `+column+` = $1`, id).
		Scan(&t.Count, &t.Pending, &t.Overdue, &t.Paid, &t.NextDue)
	return t, err
}

// UpcomingSchedules lists the earliest unpaid rows of a property.
func (r *PGRepository) UpcomingSchedules(ctx context.Context, propertyID int64, limit int) ([]PaymentSchedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM landlord_payment_schedules
		WHERE property_id = $1 AND status <> 'Paid' ORDER BY due_date, id LIMIT $2`, propertyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSchedule loads one payment row.
func (r *PGRepository) GetSchedule(ctx context.Context, id int64) (PaymentSchedule, error) {
	s, err := scanSchedule(r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM landlord_payment_schedules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentSchedule{}, notFound("payment schedule", id)
	}
	return s, err
}

// MarkPaid sets a row Paid unless it already is.
func (r *PGRepository) MarkPaid(ctx context.Context, id int64, paidOn time.Time, reference string) (PaymentSchedule, error) {
	s, err := scanSchedule(r.pool.QueryRow(ctx, `
		UPDATE landlord_payment_schedules SET status = 'Paid', paid_on = $2, payment_reference = NULLIF($3, '')
		WHERE id = $1 AND status <> 'Paid'
		RETURNING `+scheduleColumns, id, paidOn, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentSchedule{}, fmt.Errorf("landlord: schedule %d: %w", id, shared.ErrInvalidState)
	}
	return s, err
}

// MarkOverdue implements ScheduleRepository.
func (r *PGRepository) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE landlord_payment_schedules SET status = 'Overdue' WHERE status = 'Pending' AND due_date < $1`, today)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ReminderCandidates implements ScheduleRepository.
func (r *PGRepository) ReminderCandidates(ctx context.Context, today, until time.Time) ([]Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.due_date, s.amount, s.status, l.legal_name, l.email, p.name
		FROM landlord_payment_schedules s
		JOIN landlords l ON l.id = s.landlord_id
		JOIN properties p ON p.id = s.property_id
		WHERE (s.status = 'Overdue' OR (s.status = 'Pending' AND s.due_date <= $2))
			AND (s.reminder_sent_at IS NULL OR s.reminder_sent_at < $1)
		ORDER BY s.due_date, s.id`, today, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ScheduleID, &rem.DueDate, &rem.Amount, &rem.Status, &rem.LandlordName, &rem.Email, &rem.PropertyName); err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

// MarkReminded stamps the reminder time.
func (r *PGRepository) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE landlord_payment_schedules SET reminder_sent_at = $2 WHERE id = $1`, id, at)
	return err
}
