package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-rentals/internal/invoicing"
	jobmetrics "github.com/odyssey-erp/odyssey-rentals/internal/jobs"
	"github.com/odyssey-erp/odyssey-rentals/internal/landlord"
	"github.com/odyssey-erp/odyssey-rentals/internal/notify"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// DefaultReminderWindowDays applies when neither payload nor config set one.
const DefaultReminderWindowDays = 7

// DueInvoicer runs the auto-invoicer over open customer schedules.
type DueInvoicer interface {
	CreateDue(ctx context.Context, today time.Time) (invoicing.RunResult, error)
}

// PaymentSyncer updates landlord payment statuses and sends reminders.
type PaymentSyncer interface {
	SyncStatuses(ctx context.Context, today time.Time) (landlord.SyncResult, error)
	SendReminders(ctx context.Context, today time.Time, windowDays int) (landlord.ReminderResult, error)
}

// CustomerReminder sends customer invoicing reminders.
type CustomerReminder interface {
	SendReminders(ctx context.Context, today time.Time, windowDays int) (invoicing.ReminderResult, error)
}

// RiskAssessor scores every property.
type RiskAssessor interface {
	AssessAll(ctx context.Context) (int, error)
}

// DailyJobs handles the scheduled rental tasks.
type DailyJobs struct {
	Invoicer     DueInvoicer
	Payments     PaymentSyncer
	Customers    CustomerReminder
	Risk         RiskAssessor
	Mailer       notify.Mailer
	Clock        shared.Clock
	ReminderDays int
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
}

// Handlers lists the task handlers for the worker mux.
func (j *DailyJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskTypeSendEmail, Handler: j.HandleSendEmail},
		{Type: TaskInvoicingCreateDue, Handler: j.HandleInvoicingCreateDue},
		{Type: TaskPaymentsSyncStatus, Handler: j.HandlePaymentsSync},
		{Type: TaskRiskAssessAll, Handler: j.HandleRiskAssess},
	}
}

// HandleSendEmail delivers a mail:send task.
func (j *DailyJobs) HandleSendEmail(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	msg := notify.Message{To: payload.To, Subject: payload.Subject, Body: payload.Body}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if j.Mailer == nil {
		return fmt.Errorf("%w: mailer not configured", asynq.SkipRetry)
	}
	run := j.Metrics.Track(TaskTypeSendEmail)
	defer func() { resultErr = run.End(resultErr) }()
	if err := j.Mailer.Send(ctx, msg); err != nil {
		j.logger().Warn("send email", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	return nil
}

// HandleInvoicingCreateDue runs the daily auto-invoicer.
func (j *DailyJobs) HandleInvoicingCreateDue(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j.Invoicer == nil {
		return errors.New("invoicing create-due: handler not configured")
	}
	var payload DailyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	today, err := j.asOf(payload.AsOf)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	run := j.Metrics.Track(TaskInvoicingCreateDue)
	defer func() { resultErr = run.End(resultErr) }()

	logger := j.logger().With(slog.String("as_of", today.Format(shared.DateLayout)))
	res, err := j.Invoicer.CreateDue(ctx, today)
	if err != nil {
		logger.Error("invoicing create-due", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskInvoicingCreateDue, "invoiced", res.Invoiced)
	j.Metrics.AddItems(TaskInvoicingCreateDue, "failed", res.Failed)
	j.Metrics.AddItems(TaskInvoicingCreateDue, "overdue", res.MarkedOverdue)
	logger.Info("completed invoicing create-due",
		slog.Int("scanned", res.Scanned), slog.Int("invoiced", res.Invoiced),
		slog.Int("failed", res.Failed), slog.Int("marked_overdue", res.MarkedOverdue))
	return nil
}

// HandlePaymentsSync marks overdue landlord payments, then sends landlord and
// customer reminders. A reminder failure does not fail the task once statuses
// are synced.
func (j *DailyJobs) HandlePaymentsSync(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j.Payments == nil {
		return errors.New("payments sync-status: handler not configured")
	}
	var payload PaymentsSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	today, err := j.asOf(payload.AsOf)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	window := payload.WindowDays
	if window <= 0 {
		window = j.ReminderDays
	}
	if window <= 0 {
		window = DefaultReminderWindowDays
	}
	run := j.Metrics.Track(TaskPaymentsSyncStatus)
	defer func() { resultErr = run.End(resultErr) }()

	logger := j.logger().With(slog.String("as_of", today.Format(shared.DateLayout)))
	synced, err := j.Payments.SyncStatuses(ctx, today)
	if err != nil {
		logger.Error("payments sync-status", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskPaymentsSyncStatus, "overdue", synced.MarkedOverdue)

	reminded, err := j.Payments.SendReminders(ctx, today, window)
	if err != nil {
		logger.Warn("payment reminders", slog.Any("error", err))
	}
	j.Metrics.AddItems(TaskPaymentsSyncStatus, "reminded", reminded.Sent)
	j.Metrics.AddItems(TaskPaymentsSyncStatus, "reminder_failed", reminded.Failed)

	var customers invoicing.ReminderResult
	if j.Customers != nil {
		customers, err = j.Customers.SendReminders(ctx, today, window)
		if err != nil {
			logger.Warn("customer reminders", slog.Any("error", err))
		}
		j.Metrics.AddItems(TaskPaymentsSyncStatus, "customer_reminded", customers.Sent)
		j.Metrics.AddItems(TaskPaymentsSyncStatus, "reminder_failed", customers.Failed)
	}
	logger.Info("completed payments sync-status",
		slog.Int("marked_overdue", synced.MarkedOverdue), slog.Int("reminders_sent", reminded.Sent),
		slog.Int("reminders_skipped", reminded.Skipped), slog.Int("reminders_failed", reminded.Failed),
		slog.Int("customer_reminders_sent", customers.Sent), slog.Int("customer_reminders_failed", customers.Failed))
	return nil
}

// HandleRiskAssess scores every property.
func (j *DailyJobs) HandleRiskAssess(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j.Risk == nil {
		return errors.New("risk assess-all: handler not configured")
	}
	run := j.Metrics.Track(TaskRiskAssessAll)
	defer func() { resultErr = run.End(resultErr) }()
	n, err := j.Risk.AssessAll(ctx)
	if err != nil {
		j.logger().Error("risk assess-all", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskRiskAssessAll, "assessed", n)
	j.logger().Info("completed risk assess-all", slog.Int("assessed", n))
	return nil
}

func (j *DailyJobs) asOf(raw string) (time.Time, error) {
	if raw != "" {
		return shared.ParseDate(raw)
	}
	clock := j.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return clock.Today(), nil
}

func (j *DailyJobs) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
