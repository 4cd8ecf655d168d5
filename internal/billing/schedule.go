package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// Status of a generated entry at generation time.
type Status string

const (
	StatusPending Status = "Pending"
	StatusOverdue Status = "Overdue"
)

// maxEntries bounds a single generation run (100 years of monthly billing).
const maxEntries = 1200

var hundred = decimal.NewFromInt(100)

// Escalation is a periodic compounding rent increase. It runs on its own
// cadence, independent of the payment frequency.
type Escalation struct {
	Percent   decimal.Decimal
	Frequency Frequency
}

// Enabled reports whether the escalation changes any amount.
func (e Escalation) Enabled() bool {
	return e.Percent.IsPositive() && e.Frequency.Valid()
}

// Plan describes what a contract bills.
type Plan struct {
	Start      time.Time
	End        time.Time
	Amount     decimal.Decimal
	Frequency  Frequency
	Escalation Escalation
}

// Entry is one billing period.
type Entry struct {
	Index       int
	DueDate     time.Time
	Amount      decimal.Decimal
	Escalations int
	Status      Status
}

// Validate checks the plan's own fields.
func (p Plan) Validate() error {
	v := shared.NewValidationError()
	if p.Start.IsZero() {
		v.Add("start_date", "is required")
	}
	if p.End.IsZero() {
		v.Add("end_date", "is required")
	}
	if !p.Start.IsZero() && !p.End.IsZero() && !shared.DateOf(p.End).After(shared.DateOf(p.Start)) {
		v.Add("end_date", "must be after start date")
	}
	if !p.Amount.IsPositive() {
		v.Add("rental_amount", "must be greater than zero")
	}
	if !p.Frequency.Valid() {
		v.Add("payment_frequency", "must be Monthly, Quarterly or Annually")
	}
	if p.Escalation.Percent.IsNegative() || p.Escalation.Percent.GreaterThan(hundred) {
		v.Add("escalation_percent", "must be between 0 and 100")
	}
	if p.Escalation.Percent.IsPositive() && !p.Escalation.Frequency.Valid() {
		v.Add("escalation_frequency", "is required when an escalation percent is set")
	}
	return v.Err()
}

// Generate expands the plan into entries due every period from start through
// end inclusive. Due dates are computed from start (start + i periods) so month
// end clamping never drifts. Entries due before today are Overdue.
func Generate(p Plan, today time.Time) ([]Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start, end, today := shared.DateOf(p.Start), shared.DateOf(p.End), shared.DateOf(today)
	step := p.Frequency.Months()

	var entries []Entry
	for i := 0; ; i++ {
		due := shared.AddMonths(start, i*step)
		if due.After(end) {
			break
		}
		if i >= maxEntries {
			return nil, errors.New("billing: schedule exceeds maximum length")
		}
		k := p.escalationsAt(due)
		status := StatusPending
		if due.Before(today) {
			status = StatusOverdue
		}
		entries = append(entries, Entry{
			Index:       i,
			DueDate:     due,
			Amount:      escalate(p.Amount, p.Escalation.Percent, k),
			Escalations: k,
			Status:      status,
		})
	}
	return entries, nil
}

// AmountAt returns the escalated amount in force on the given date.
func (p Plan) AmountAt(on time.Time) decimal.Decimal {
	return escalate(p.Amount, p.Escalation.Percent, p.escalationsAt(on))
}

// CurrentRent returns the amount in force today, with today clamped into the
// contract range.
func (p Plan) CurrentRent(today time.Time) decimal.Decimal {
	on := shared.DateOf(today)
	if on.Before(shared.DateOf(p.Start)) {
		on = shared.DateOf(p.Start)
	}
	if on.After(shared.DateOf(p.End)) {
		on = shared.DateOf(p.End)
	}
	return p.AmountAt(on)
}

// escalationsAt counts whole escalation periods elapsed between start and on.
func (p Plan) escalationsAt(on time.Time) int {
	if !p.Escalation.Enabled() {
		return 0
	}
	return shared.MonthsBetween(p.Start, on) / p.Escalation.Frequency.Months()
}

// escalate computes amount × (1 + pct/100)^k, rounded to cents.
func escalate(amount, pct decimal.Decimal, k int) decimal.Decimal {
	if k <= 0 || !pct.IsPositive() {
		return amount.Round(2)
	}
	factor := decimal.NewFromInt(1).Add(pct.Div(hundred))
	result := amount
	for i := 0; i < k; i++ {
		result = result.Mul(factor)
	}
	return result.Round(2)
}

// Overlaps reports whether two inclusive date ranges share at least one day.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return !shared.DateOf(startA).After(shared.DateOf(endB)) && !shared.DateOf(startB).After(shared.DateOf(endA))
}

// Describe renders an entry for logs.
func (e Entry) Describe() string {
	return fmt.Sprintf("#%d due %s amount %s (%s)", e.Index, e.DueDate.Format(shared.DateLayout), e.Amount.StringFixed(2), e.Status)
}
