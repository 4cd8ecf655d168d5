package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rentals/internal/invoicing"
	jobmetrics "github.com/odyssey-erp/odyssey-rentals/internal/jobs"
	"github.com/odyssey-erp/odyssey-rentals/internal/landlord"
	"github.com/odyssey-erp/odyssey-rentals/internal/notify"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

type fakeInvoicer struct {
	today time.Time
	err   error
}

func (f *fakeInvoicer) CreateDue(ctx context.Context, today time.Time) (invoicing.RunResult, error) {
	f.today = today
	return invoicing.RunResult{Scanned: 3, Invoiced: 2, Failed: 1}, f.err
}

type fakePayments struct {
	window      int
	syncErr     error
	reminderErr error
	reminded    bool
}

func (f *fakePayments) SyncStatuses(ctx context.Context, today time.Time) (landlord.SyncResult, error) {
	return landlord.SyncResult{MarkedOverdue: 4}, f.syncErr
}

func (f *fakePayments) SendReminders(ctx context.Context, today time.Time, windowDays int) (landlord.ReminderResult, error) {
	f.window = windowDays
	f.reminded = true
	return landlord.ReminderResult{Sent: 2}, f.reminderErr
}

type fakeCustomers struct {
	today  time.Time
	window int
	err    error
}

func (f *fakeCustomers) SendReminders(ctx context.Context, today time.Time, windowDays int) (invoicing.ReminderResult, error) {
	f.today, f.window = today, windowDays
	return invoicing.ReminderResult{Sent: 1}, f.err
}

type fakeMailer struct {
	sent []notify.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg notify.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func newDailyJobs() *DailyJobs {
	return &DailyJobs{
		Clock:   shared.FixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}
}

func TestInvoicingCreateDueUsesClockOrOverride(t *testing.T) {
	j := newDailyJobs()
	inv := &fakeInvoicer{}
	j.Invoicer = inv

	task, err := NewInvoicingCreateDueTask("")
	require.NoError(t, err)
	require.NoError(t, j.HandleInvoicingCreateDue(context.Background(), task))
	require.Equal(t, "2024-06-01", inv.today.Format(shared.DateLayout))

	task, err = NewInvoicingCreateDueTask("2024-07-15")
	require.NoError(t, err)
	require.NoError(t, j.HandleInvoicingCreateDue(context.Background(), task))
	require.Equal(t, "2024-07-15", inv.today.Format(shared.DateLayout))
}

func TestInvoicingCreateDueRejectsBadDate(t *testing.T) {
	j := newDailyJobs()
	j.Invoicer = &fakeInvoicer{}
	task, err := NewInvoicingCreateDueTask("15/07/2024")
	require.NoError(t, err)
	require.ErrorIs(t, j.HandleInvoicingCreateDue(context.Background(), task), asynq.SkipRetry)
}

func TestInvoicingCreateDueSurfacesFailure(t *testing.T) {
	j := newDailyJobs()
	j.Invoicer = &fakeInvoicer{err: errors.New("db down")}
	task, err := NewInvoicingCreateDueTask("")
	require.NoError(t, err)
	require.Error(t, j.HandleInvoicingCreateDue(context.Background(), task))
}

func TestPaymentsSyncWindowFallbacks(t *testing.T) {
	j := newDailyJobs()
	pay := &fakePayments{}
	j.Payments = pay

	task, err := NewPaymentsSyncTask("", 0)
	require.NoError(t, err)
	require.NoError(t, j.HandlePaymentsSync(context.Background(), task))
	require.Equal(t, DefaultReminderWindowDays, pay.window)

	j.ReminderDays = 10
	require.NoError(t, j.HandlePaymentsSync(context.Background(), task))
	require.Equal(t, 10, pay.window)

	task, err = NewPaymentsSyncTask("", 3)
	require.NoError(t, err)
	require.NoError(t, j.HandlePaymentsSync(context.Background(), task))
	require.Equal(t, 3, pay.window)
}

func TestPaymentsSyncToleratesReminderFailure(t *testing.T) {
	j := newDailyJobs()
	j.Payments = &fakePayments{reminderErr: errors.New("smtp down")}
	task, err := NewPaymentsSyncTask("", 0)
	require.NoError(t, err)
	require.NoError(t, j.HandlePaymentsSync(context.Background(), task))
}

func TestPaymentsSyncRemindsCustomers(t *testing.T) {
	j := newDailyJobs()
	j.Payments = &fakePayments{}
	customers := &fakeCustomers{}
	j.Customers = customers

	task, err := NewPaymentsSyncTask("2024-05-20", 5)
	require.NoError(t, err)
	require.NoError(t, j.HandlePaymentsSync(context.Background(), task))
	require.Equal(t, "2024-05-20", customers.today.Format(shared.DateLayout))
	require.Equal(t, 5, customers.window)

	customers.err = errors.New("redis down")
	require.NoError(t, j.HandlePaymentsSync(context.Background(), task))
}

func TestPaymentsSyncStopsWhenStatusSyncFails(t *testing.T) {
	j := newDailyJobs()
	pay := &fakePayments{syncErr: errors.New("db down")}
	j.Payments = pay
	task, err := NewPaymentsSyncTask("", 0)
	require.NoError(t, err)
	require.Error(t, j.HandlePaymentsSync(context.Background(), task))
	require.False(t, pay.reminded)
}

func TestSendEmailDeliversAndSkipsInvalid(t *testing.T) {
	j := newDailyJobs()
	mailer := &fakeMailer{}
	j.Mailer = mailer

	task, err := NewSendEmailTask(SendEmailPayload{To: "ll@example.com", Subject: "Rent due", Body: "Hello"})
	require.NoError(t, err)
	require.NoError(t, j.HandleSendEmail(context.Background(), task))
	require.Len(t, mailer.sent, 1)

	task, err = NewSendEmailTask(SendEmailPayload{Subject: "no recipient"})
	require.NoError(t, err)
	require.ErrorIs(t, j.HandleSendEmail(context.Background(), task), asynq.SkipRetry)

	bad := asynq.NewTask(TaskTypeSendEmail, []byte("{"))
	require.ErrorIs(t, j.HandleSendEmail(context.Background(), bad), asynq.SkipRetry)
}

func TestNewTaskByName(t *testing.T) {
	for _, name := range []string{TaskInvoicingCreateDue, TaskPaymentsSyncStatus, TaskRiskAssessAll} {
		task, err := NewTaskByName(name, 7)
		require.NoError(t, err)
		require.Equal(t, name, task.Type())
	}
	_, err := NewTaskByName("gl:rebuild", 7)
	var unknown *UnknownTaskError
	require.ErrorAs(t, err, &unknown)
}

func TestHandlersCoverEveryTask(t *testing.T) {
	types := map[string]bool{}
	for _, h := range newDailyJobs().Handlers() {
		types[h.Type] = true
	}
	for _, want := range []string{TaskTypeSendEmail, TaskInvoicingCreateDue, TaskPaymentsSyncStatus, TaskRiskAssessAll} {
		require.True(t, types[want], want)
	}
}
