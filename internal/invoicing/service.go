package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-rentals/internal/notify"
	"github.com/odyssey-erp/odyssey-rentals/internal/sales"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// ErrNotFound indicates the schedule does not exist.
var ErrNotFound = errors.New("invoicing: not found")

const idempotencyModule = "invoicing"

// IdempotencyKey guards a schedule row against double invoicing.
func IdempotencyKey(id int64) string {
	return "customer-schedule:" + strconv.FormatInt(id, 10)
}

// Repository is the persistence port for customer invoicing schedules.
type Repository interface {
	Create(ctx context.Context, s Schedule) (Schedule, error)
	Update(ctx context.Context, s Schedule) (Schedule, error)
	Get(ctx context.Context, id int64) (Schedule, error)
	// Candidates lists Pending or Overdue rows without an invoice.
	Candidates(ctx context.Context) ([]Schedule, error)
	LinkInvoice(ctx context.Context, id, orderID, invoiceID int64) (Schedule, error)
	RecordError(ctx context.Context, id int64, msg string) error
	SetStatus(ctx context.Context, id int64, status Status) (Schedule, error)
	// ReminderCandidates lists unpaid rows with a customer email that are
	// Overdue or due by until, and were not reminded since today.
	ReminderCandidates(ctx context.Context, today, until time.Time) ([]Schedule, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// MailQueue hands a message to the background mail worker.
type MailQueue interface {
	EnqueueMail(ctx context.Context, msg notify.Message) error
}

// Invoicer raises and settles sales invoices.
type Invoicer interface {
	Invoice(ctx context.Context, req sales.InvoiceRequest) (sales.Invoice, sales.Order, error)
	MarkPaid(ctx context.Context, invoiceID int64) error
}

// Service implements the auto-invoicer.
type Service struct {
	repo        Repository
	invoicer    Invoicer
	idempotency shared.Idempotency
	auditor     shared.Auditor
	cache       shared.Invalidator
	clock       shared.Clock
	mail        MailQueue
	currency    string
	now         func() time.Time
	logger      *slog.Logger
	leadMonths  int
}

// Config wires Service dependencies.
type Config struct {
	Repository  Repository
	Invoicer    Invoicer
	Idempotency shared.Idempotency
	Auditor     shared.Auditor
	Cache       shared.Invalidator
	Clock       shared.Clock
	// Mail may be nil, in which case reminders are skipped.
	Mail        MailQueue
	Currency    string
	Logger      *slog.Logger
	// LeadMonths is how far ahead of the due date an invoice is raised.
	LeadMonths int
}

// NewService builds a Service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock{}
	}
	if cfg.LeadMonths <= 0 {
		cfg.LeadMonths = 1
	}
	return &Service{
		repo:        cfg.Repository,
		invoicer:    cfg.Invoicer,
		idempotency: cfg.Idempotency,
		auditor:     cfg.Auditor,
		cache:       cfg.Cache,
		clock:       cfg.Clock,
		mail:        cfg.Mail,
		currency:    cfg.Currency,
		now:         time.Now,
		logger:      cfg.Logger,
		leadMonths:  cfg.LeadMonths,
	}
}

func validate(in Input) error {
	v := shared.NewValidationError()
	if strings.TrimSpace(in.Customer) == "" {
		v.Add("customer", "is required")
	}
	if strings.TrimSpace(in.Project) == "" {
		v.Add("project", "is required")
	}
	if in.DueDate.IsZero() {
		v.Add("due_date", "is required")
	}
	if !in.Amount.IsPositive() {
		v.Add("amount", "must be greater than zero")
	}
	return v.Err()
}

func apply(s Schedule, in Input) Schedule {
	s.Customer = strings.TrimSpace(in.Customer)
	s.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	s.Project = strings.TrimSpace(in.Project)
	s.InstallationID = in.InstallationID
	s.DueDate = in.DueDate
	s.Amount = in.Amount.Round(2)
	return s
}

// Create inserts a Pending schedule and runs the invoicer on it.
func (s *Service) Create(ctx context.Context, in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}
	created, err := s.repo.Create(ctx, apply(Schedule{Status: StatusPending}, in))
	if err != nil {
		return Result{}, fmt.Errorf("invoicing: create: %w", err)
	}
	s.audit(ctx, "create", created)
	return s.OnUpdate(ctx, created), nil
}

// Update edits a schedule that has not been invoiced or paid, then runs the
// invoicer on it.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if current.SalesInvoiceID != nil || current.Status == StatusPaid || current.Status == StatusInvoiceCreated {
		return Result{}, fmt.Errorf("invoicing: schedule %d is %s and can no longer be edited: %w", id, current.Status, shared.ErrInvalidState)
	}
	updated, err := s.repo.Update(ctx, apply(current, in))
	if err != nil {
		return Result{}, fmt.Errorf("invoicing: update: %w", err)
	}
	s.audit(ctx, "update", updated)
	return s.OnUpdate(ctx, updated), nil
}

// Get returns a schedule.
func (s *Service) Get(ctx context.Context, id int64) (Schedule, error) {
	return s.repo.Get(ctx, id)
}

// OnUpdate invoices the row when Decide triggers. Failures never fail the
// save: they are logged, stored on the row and returned as a notice.
func (s *Service) OnUpdate(ctx context.Context, sched Schedule) Result {
	res := Result{Schedule: sched}
	trigger := Decide(sched, s.clock.Today(), s.leadMonths)
	if trigger == TriggerNone {
		return res
	}
	invoiced, err := s.invoice(ctx, sched, trigger)
	switch {
	case errors.Is(err, shared.ErrIdempotencyConflict):
		res.Notices.Info("An invoice for this schedule is already being created")
	case err != nil:
		res.Notices.Warn("Sales invoice could not be created: " + shared.UserSafeMessage(err))
		res.Schedule.LastError = err.Error()
	default:
		res.Schedule = invoiced
		res.Notices.Info(fmt.Sprintf("Sales invoice created (%s)", trigger))
	}
	shared.BumpQuietly(ctx, s.cache, s.logger)
	return res
}

func (s *Service) invoice(ctx context.Context, sched Schedule, trigger Trigger) (Schedule, error) {
	key := IdempotencyKey(sched.ID)
	if s.idempotency != nil {
		if err := s.idempotency.Claim(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Schedule{}, err
			}
			return Schedule{}, s.fail(ctx, sched, fmt.Errorf("idempotency check: %w", err))
		}
	}
	inv, order, err := s.invoicer.Invoice(ctx, sales.InvoiceRequest{
		Customer:    sched.Customer,
		Project:     sched.Project,
		ScheduleID:  sched.ID,
		PostingDate: s.clock.Today(),
		DueDate:     sched.DueDate.Time,
		Amount:      sched.Amount,
	})
	if err != nil {
		s.release(ctx, key)
		return Schedule{}, s.fail(ctx, sched, err)
	}
	linked, err := s.repo.LinkInvoice(ctx, sched.ID, order.ID, inv.ID)
	if err != nil {
		// The invoice stays behind; the next attempt finds it by schedule id.
		s.release(ctx, key)
		return Schedule{}, s.fail(ctx, sched, fmt.Errorf("link invoice %s: %w", inv.Number, err))
	}
	s.logger.Info("customer schedule invoiced",
		slog.Int64("schedule_id", sched.ID), slog.String("invoice", inv.Number),
		slog.String("order", order.Number), slog.String("trigger", string(trigger)))
	return linked, nil
}

func (s *Service) fail(ctx context.Context, sched Schedule, err error) error {
	s.logger.Error("customer schedule invoicing failed", slog.Int64("schedule_id", sched.ID), slog.Any("error", err))
	if recErr := s.repo.RecordError(ctx, sched.ID, err.Error()); recErr != nil {
		s.logger.Warn("record invoicing error", slog.Int64("schedule_id", sched.ID), slog.Any("error", recErr))
	}
	return err
}

func (s *Service) release(ctx context.Context, key string) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}

// CreateDue runs the invoicer over every uninvoiced row. Rows past due whose
// invoice could not be made are moved to Overdue.
func (s *Service) CreateDue(ctx context.Context, today time.Time) (RunResult, error) {
	rows, err := s.repo.Candidates(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("invoicing: candidates: %w", err)
	}
	var run RunResult
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		run.Scanned++
		trigger := Decide(row, today, s.leadMonths)
		if trigger == TriggerNone {
			continue
		}
		_, err := s.invoice(ctx, row, trigger)
		if err == nil {
			run.Invoiced++
			continue
		}
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			continue
		}
		run.Failed++
		if trigger == TriggerOverdue && row.Status == StatusPending {
			if _, err := s.repo.SetStatus(ctx, row.ID, StatusOverdue); err != nil {
				s.logger.Warn("mark schedule overdue", slog.Int64("schedule_id", row.ID), slog.Any("error", err))
				continue
			}
			run.MarkedOverdue++
		}
	}
	if run.Invoiced > 0 || run.MarkedOverdue > 0 {
		shared.BumpQuietly(ctx, s.cache, s.logger)
	}
	return run, nil
}

// SendReminders queues one email per unpaid row that is Overdue or due within
// windowDays, at most once per day per row. Rows without a usable customer
// email are skipped.
func (s *Service) SendReminders(ctx context.Context, today time.Time, windowDays int) (ReminderResult, error) {
	if windowDays < 0 {
		windowDays = 0
	}
	today = shared.DateOf(today)
	rows, err := s.repo.ReminderCandidates(ctx, today, today.AddDate(0, 0, windowDays))
	if err != nil {
		return ReminderResult{}, fmt.Errorf("invoicing: reminder candidates: %w", err)
	}
	var res ReminderResult
	for _, row := range rows {
		if s.mail == nil || !strings.Contains(row.CustomerEmail, "@") {
			res.Skipped++
			continue
		}
		msg := notify.InvoiceReminder{
			Email:    row.CustomerEmail,
			Customer: row.Customer,
			Project:  row.Project,
			DueDate:  row.DueDate.Time,
			Amount:   row.Amount,
			Currency: s.currency,
			Overdue:  row.Status == StatusOverdue || row.DueDate.Before(today),
		}.Message()
		if err := s.mail.EnqueueMail(ctx, msg); err != nil {
			s.logger.Warn("enqueue customer reminder", slog.Int64("schedule_id", row.ID), slog.Any("error", err))
			res.Failed++
			continue
		}
		if err := s.repo.MarkReminded(ctx, row.ID, s.now()); err != nil {
			s.logger.Warn("mark customer reminder sent", slog.Int64("schedule_id", row.ID), slog.Any("error", err))
		}
		res.Sent++
	}
	return res, nil
}

// MarkPaid settles a schedule. Pending rows must be invoiced first.
func (s *Service) MarkPaid(ctx context.Context, id int64) (Result, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if current.Status != StatusInvoiceCreated && current.Status != StatusOverdue {
		return Result{}, fmt.Errorf("invoicing: schedule %d is %s: %w", id, current.Status, shared.ErrInvalidState)
	}
	paid, err := s.repo.SetStatus(ctx, id, StatusPaid)
	if err != nil {
		return Result{}, fmt.Errorf("invoicing: mark paid: %w", err)
	}
	res := Result{Schedule: paid}
	if paid.SalesInvoiceID != nil {
		if err := s.invoicer.MarkPaid(ctx, *paid.SalesInvoiceID); err != nil {
			s.logger.Warn("settle sales invoice", slog.Int64("schedule_id", id), slog.Any("error", err))
			res.Notices.Warn("The linked sales invoice could not be marked paid")
		}
	}
	s.audit(ctx, "mark_paid", paid)
	shared.BumpQuietly(ctx, s.cache, s.logger)
	return res, nil
}

func (s *Service) audit(ctx context.Context, action string, sched Schedule) {
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: shared.ActorFromContext(ctx), Action: action, Entity: "customer_invoicing_schedule",
		EntityID: strconv.FormatInt(sched.ID, 10), Meta: map[string]any{"project": sched.Project, "status": sched.Status},
	})
}
