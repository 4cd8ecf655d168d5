package landlord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-rentals/internal/notify"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// ScheduleRepository is the persistence port for landlord payment rows.
type ScheduleRepository interface {
	GetSchedule(ctx context.Context, id int64) (PaymentSchedule, error)
	MarkPaid(ctx context.Context, id int64, paidOn time.Time, reference string) (PaymentSchedule, error)
	// MarkOverdue flips Pending rows due before today and returns the count.
	MarkOverdue(ctx context.Context, today time.Time) (int, error)
	// ReminderCandidates lists Overdue rows and Pending rows due on or before
	// until, skipping rows already reminded on today.
	ReminderCandidates(ctx context.Context, today, until time.Time) ([]Reminder, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// MailQueue hands a message to the background mail worker.
type MailQueue interface {
	EnqueueMail(ctx context.Context, msg notify.Message) error
}

// SyncResult reports a status sync run.
type SyncResult struct {
	MarkedOverdue int `json:"marked_overdue"`
}

// ReminderResult reports a reminder run.
type ReminderResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// PaymentService manages landlord payment schedule rows.
type PaymentService struct {
	repo     ScheduleRepository
	mail     MailQueue
	cache    shared.Invalidator
	auditor  shared.Auditor
	clock    shared.Clock
	logger   *slog.Logger
	currency string
	now      func() time.Time
}

// PaymentConfig wires PaymentService dependencies.
type PaymentConfig struct {
	Repository ScheduleRepository
	Mail       MailQueue
	Cache      shared.Invalidator
	Auditor    shared.Auditor
	Clock      shared.Clock
	Logger     *slog.Logger
	Currency   string
}

// NewPaymentService builds a PaymentService.
func NewPaymentService(cfg PaymentConfig) *PaymentService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock{}
	}
	return &PaymentService{
		repo:     cfg.Repository,
		mail:     cfg.Mail,
		cache:    cfg.Cache,
		auditor:  cfg.Auditor,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		currency: cfg.Currency,
		now:      time.Now,
	}
}

// MarkPaid records a payment. A zero paidOn means today; future dates and
// already Paid rows are rejected.
func (s *PaymentService) MarkPaid(ctx context.Context, id int64, paidOn time.Time, reference string) (PaymentSchedule, error) {
	today := s.clock.Today()
	if paidOn.IsZero() {
		paidOn = today
	}
	paidOn = shared.DateOf(paidOn)
	if paidOn.After(today) {
		return PaymentSchedule{}, shared.Invalid("paid_on", "must not be in the future")
	}
	current, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return PaymentSchedule{}, err
	}
	if current.Status == SchedulePaid {
		return PaymentSchedule{}, fmt.Errorf("landlord: schedule %d already paid: %w", id, shared.ErrInvalidState)
	}
	updated, err := s.repo.MarkPaid(ctx, id, paidOn, strings.TrimSpace(reference))
	if err != nil {
		return PaymentSchedule{}, fmt.Errorf("landlord: mark paid: %w", err)
	}
	shared.RecordQuietly(ctx, s.auditor, s.logger, shared.AuditLog{
		Actor: shared.ActorFromContext(ctx), Action: "mark_paid", Entity: "landlord_payment_schedule",
		EntityID: strconv.FormatInt(id, 10), Meta: map[string]any{"reference": updated.PaymentReference},
	})
	shared.BumpQuietly(ctx, s.cache, s.logger)
	return updated, nil
}

// SyncStatuses moves Pending rows due before today to Overdue.
func (s *PaymentService) SyncStatuses(ctx context.Context, today time.Time) (SyncResult, error) {
	n, err := s.repo.MarkOverdue(ctx, shared.DateOf(today))
	if err != nil {
		return SyncResult{}, fmt.Errorf("landlord: sync statuses: %w", err)
	}
	if n > 0 {
		shared.BumpQuietly(ctx, s.cache, s.logger)
	}
	return SyncResult{MarkedOverdue: n}, nil
}

// SendReminders queues one email per Overdue row and per Pending row due
// within windowDays, at most once per day per row. Individual failures are
// logged and counted.
func (s *PaymentService) SendReminders(ctx context.Context, today time.Time, windowDays int) (ReminderResult, error) {
	if windowDays < 0 {
		windowDays = 0
	}
	today = shared.DateOf(today)
	rows, err := s.repo.ReminderCandidates(ctx, today, today.AddDate(0, 0, windowDays))
	if err != nil {
		return ReminderResult{}, fmt.Errorf("landlord: reminder candidates: %w", err)
	}
	var res ReminderResult
	for _, row := range rows {
		if s.mail == nil || !strings.Contains(row.Email, "@") {
			res.Skipped++
			continue
		}
		msg := notify.PaymentReminder{
			Email:        row.Email,
			LandlordName: row.LandlordName,
			PropertyName: row.PropertyName,
			DueDate:      row.DueDate,
			Amount:       row.Amount,
			Currency:     s.currency,
			Overdue:      row.Status == ScheduleOverdue || row.DueDate.Before(today),
		}.Message()
		if err := s.mail.EnqueueMail(ctx, msg); err != nil {
			s.logger.Warn("enqueue payment reminder", slog.Int64("schedule_id", row.ScheduleID), slog.Any("error", err))
			res.Failed++
			continue
		}
		if err := s.repo.MarkReminded(ctx, row.ScheduleID, s.now()); err != nil {
			s.logger.Warn("mark reminder sent", slog.Int64("schedule_id", row.ScheduleID), slog.Any("error", err))
		}
		res.Sent++
	}
	return res, nil
}
