// Package invoicing manages customer invoicing schedules and raises sales
// invoices for them once they fall due.
package invoicing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// Status of a customer invoicing schedule row.
type Status string

const (
	StatusPending        Status = "Pending"
	StatusInvoiceCreated Status = "Invoice Created"
	StatusOverdue        Status = "Overdue"
	StatusPaid           Status = "Paid"
)

// Schedule is one billable customer instalment.
type Schedule struct {
	ID             int64           `json:"id"`
	Customer       string          `json:"customer"`
	CustomerEmail  string          `json:"customer_email,omitempty"`
	Project        string          `json:"project"`
	InstallationID *int64          `json:"installation_id,omitempty"`
	DueDate        shared.Date     `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
	Status         Status          `json:"status"`
	SalesOrderID   *int64          `json:"sales_order_id,omitempty"`
	SalesInvoiceID *int64          `json:"sales_invoice_id,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	ReminderSentAt *time.Time      `json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Input is the editable part of a schedule.
type Input struct {
	Customer       string          `json:"customer" validate:"required,max=200"`
	CustomerEmail  string          `json:"customer_email" validate:"omitempty,email"`
	Project        string          `json:"project" validate:"required,max=200"`
	InstallationID *int64          `json:"installation_id"`
	DueDate        shared.Date     `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
}

// Result is a saved schedule with notices from the invoicing attempt.
type Result struct {
	Schedule Schedule       `json:"schedule"`
	Notices  shared.Notices `json:"notices,omitempty"`
}

// Trigger explains why a schedule is invoiced now.
type Trigger string

const (
	TriggerNone    Trigger = ""
	TriggerOverdue Trigger = "overdue"
	TriggerAdvance Trigger = "advance"
)

// Decide reports whether s should be invoiced today. Rows already linked to
// an invoice, or Paid, never trigger. A row triggers when its due date has
// passed or when today is within leadMonths of it.
func Decide(s Schedule, today time.Time, leadMonths int) Trigger {
	if s.SalesInvoiceID != nil || (s.Status != StatusPending && s.Status != StatusOverdue) {
		return TriggerNone
	}
	due, today := shared.DateOf(s.DueDate.Time), shared.DateOf(today)
	if due.Before(today) {
		return TriggerOverdue
	}
	if !today.Before(shared.AddMonths(due, -leadMonths)) {
		return TriggerAdvance
	}
	return TriggerNone
}

// RunResult reports a daily create-due run.
type RunResult struct {
	Scanned       int `json:"scanned"`
	Invoiced      int `json:"invoiced"`
	Failed        int `json:"failed"`
	MarkedOverdue int `json:"marked_overdue"`
}

// ReminderResult reports a customer reminder run.
type ReminderResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
