package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail sends one transactional email over SMTP.
	TaskTypeSendEmail = "mail:send"
	// TaskInvoicingCreateDue runs the auto-invoicer over every open customer schedule.
	TaskInvoicingCreateDue = "invoicing:create-due"
	// TaskPaymentsSyncStatus marks overdue landlord payments and sends reminders.
	TaskPaymentsSyncStatus = "payments:sync-status"
	// TaskRiskAssessAll scores every property.
	TaskRiskAssessAll = "risk:assess-all"
)

// Cron specs for the daily jobs.
const (
	CronInvoicingCreateDue = "0 9 * * *"
	CronPaymentsSyncStatus = "0 8 * * *"
	CronRiskAssessAll      = "30 8 * * *"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// DailyPayload carries an optional as-of date override in YYYY-MM-DD form.
// Empty means today in the configured timezone.
type DailyPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// PaymentsSyncPayload configures a status sync run.
type PaymentsSyncPayload struct {
	AsOf       string `json:"as_of,omitempty"`
	WindowDays int    `json:"window_days,omitempty"`
}

// NewInvoicingCreateDueTask constructs the daily invoicing task.
func NewInvoicingCreateDueTask(asOf string) (*asynq.Task, error) {
	data, err := json.Marshal(DailyPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicingCreateDue, data), nil
}

// NewPaymentsSyncTask constructs the daily payment status task.
func NewPaymentsSyncTask(asOf string, windowDays int) (*asynq.Task, error) {
	data, err := json.Marshal(PaymentsSyncPayload{AsOf: asOf, WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentsSyncStatus, data), nil
}

// NewRiskAssessTask constructs the daily risk scoring task.
func NewRiskAssessTask() (*asynq.Task, error) {
	data, err := json.Marshal(DailyPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRiskAssessAll, data), nil
}

// NewTaskByName builds a task with its default payload, for manual triggers.
func NewTaskByName(name string, windowDays int) (*asynq.Task, error) {
	switch name {
	case TaskInvoicingCreateDue:
		return NewInvoicingCreateDueTask("")
	case TaskPaymentsSyncStatus:
		return NewPaymentsSyncTask("", windowDays)
	case TaskRiskAssessAll:
		return NewRiskAssessTask()
	default:
		return nil, &UnknownTaskError{Name: name}
	}
}

// UnknownTaskError reports a task name with no handler.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return "jobs: unsupported job " + e.Name
}
