package landlord

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// ContractStatus is derived from the contract dates at save time.
type ContractStatus string

const (
	ContractActive  ContractStatus = "Active"
	ContractExpired ContractStatus = "Expired"
)

// ScheduleStatus tracks a landlord payment.
type ScheduleStatus string

const (
	SchedulePending ScheduleStatus = "Pending"
	ScheduleOverdue ScheduleStatus = "Overdue"
	SchedulePaid    ScheduleStatus = "Paid"
)

// Landlord owns one or more property contracts.
type Landlord struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	LegalName     string     `json:"legal_name"`
	TaxID         string     `json:"tax_id"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	WorkflowState string     `json:"workflow_state"`
	Contracts     []Contract `json:"contracts"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Contract binds a landlord to a property for a date range.
type Contract struct {
	ID                  int64             `json:"id"`
	LandlordID          int64             `json:"landlord_id"`
	PropertyID          int64             `json:"property_id"`
	RentalAmount        decimal.Decimal   `json:"rental_amount"`
	PaymentFrequency    billing.Frequency `json:"payment_frequency"`
	StartDate           shared.Date       `json:"start_date"`
	EndDate             shared.Date       `json:"end_date"`
	EscalationPercent   decimal.Decimal   `json:"escalation_percent"`
	EscalationFrequency billing.Frequency `json:"escalation_frequency,omitempty"`
	CurrentRent         decimal.Decimal   `json:"current_rent"`
	Status              ContractStatus    `json:"status"`
}

// Plan converts the contract into a billing plan.
func (c Contract) Plan() billing.Plan {
	return billing.Plan{
		Start:     c.StartDate.Time,
		End:       c.EndDate.Time,
		Amount:    c.RentalAmount,
		Frequency: c.PaymentFrequency,
		Escalation: billing.Escalation{
			Percent:   c.EscalationPercent,
			Frequency: c.EscalationFrequency,
		},
	}
}

// sameTerms reports whether two contracts bill identically.
func (c Contract) sameTerms(o Contract) bool {
	return c.PropertyID == o.PropertyID &&
		c.RentalAmount.Equal(o.RentalAmount) &&
		c.PaymentFrequency == o.PaymentFrequency &&
		c.StartDate.Equal(o.StartDate.Time) &&
		c.EndDate.Equal(o.EndDate.Time) &&
		c.EscalationPercent.Equal(o.EscalationPercent) &&
		c.EscalationFrequency == o.EscalationFrequency
}

// statusOn derives the contract status for today.
func statusOn(c Contract, today time.Time) ContractStatus {
	if !today.Before(c.StartDate.Time) && !today.After(c.EndDate.Time) {
		return ContractActive
	}
	return ContractExpired
}

// PaymentSchedule is one landlord payment row.
type PaymentSchedule struct {
	ID               int64           `json:"id"`
	ContractID       int64           `json:"contract_id"`
	LandlordID       int64           `json:"landlord_id"`
	PropertyID       int64           `json:"property_id"`
	PeriodIndex      int             `json:"period_index"`
	PeriodMonths     int             `json:"period_months"`
	DueDate          shared.Date     `json:"due_date"`
	Amount           decimal.Decimal `json:"amount"`
	Status           ScheduleStatus  `json:"status"`
	PaidOn           shared.Date     `json:"paid_on"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	ReminderSentAt   *time.Time      `json:"reminder_sent_at,omitempty"`
}

// covers reports whether the row's billing period, which starts on its due
// date, includes on.
func (s PaymentSchedule) covers(on time.Time) bool {
	months := s.PeriodMonths
	if months <= 0 {
		months = 1
	}
	return !on.Before(s.DueDate.Time) && on.Before(shared.AddMonths(s.DueDate.Time, months))
}

// uncovered drops the generated rows whose due date falls inside a period
// some Paid row of the same contract already settled.
func uncovered(rows, paid []PaymentSchedule) []PaymentSchedule {
	out := make([]PaymentSchedule, 0, len(rows))
next:
	for _, r := range rows {
		for _, p := range paid {
			if p.ContractID == r.ContractID && p.covers(r.DueDate.Time) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// ScheduleTotals summarises schedules for a landlord or property.
type ScheduleTotals struct {
	Count   int             `json:"count"`
	Pending decimal.Decimal `json:"pending"`
	Overdue decimal.Decimal `json:"overdue"`
	Paid    decimal.Decimal `json:"paid"`
	NextDue shared.Date     `json:"next_due"`
}

// ContractInput is one contract row of a landlord save.
type ContractInput struct {
	ID                  int64             `json:"id"`
	PropertyID          int64             `json:"property_id"`
	RentalAmount        decimal.Decimal   `json:"rental_amount"`
	PaymentFrequency    billing.Frequency `json:"payment_frequency"`
	StartDate           shared.Date       `json:"start_date"`
	EndDate             shared.Date       `json:"end_date"`
	EscalationPercent   decimal.Decimal   `json:"escalation_percent"`
	EscalationFrequency billing.Frequency `json:"escalation_frequency"`
}

// Input is the landlord save payload.
type Input struct {
	Code      string          `json:"code" validate:"max=40"`
	LegalName string          `json:"legal_name" validate:"required,max=200"`
	TaxID     string          `json:"tax_id" validate:"max=40"`
	Email     string          `json:"email" validate:"omitempty,email"`
	Phone     string          `json:"phone" validate:"max=40"`
	Address   string          `json:"address" validate:"max=500"`
	Contracts []ContractInput `json:"contracts"`
}

// SaveResult is a saved landlord plus best-effort side effect notices.
type SaveResult struct {
	Landlord Landlord       `json:"landlord"`
	Notices  shared.Notices `json:"notices,omitempty"`
}

// Detail is the landlord lookup payload.
type Detail struct {
	Landlord Landlord       `json:"landlord"`
	Totals   ScheduleTotals `json:"schedule_totals"`
}

// PropertyDetail is the property lookup payload.
type PropertyDetail struct {
	Property  property.Property `json:"property"`
	Contracts []Contract        `json:"contracts"`
	Schedules []PaymentSchedule `json:"upcoming_schedules"`
	Totals    ScheduleTotals    `json:"schedule_totals"`
}

// Reminder is a schedule row joined with the contact details needed to mail it.
type Reminder struct {
	ScheduleID   int64
	DueDate      time.Time
	Amount       decimal.Decimal
	Status       ScheduleStatus
	LandlordName string
	Email        string
	PropertyName string
}
