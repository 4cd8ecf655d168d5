// Package dashboard aggregates rental data into read-only summaries for the
// executive dashboard.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// UpcomingWindowDays bounds the upcoming dues list.
const UpcomingWindowDays = 30

// PropertyCounts breaks the portfolio down by occupancy and type.
type PropertyCounts struct {
	Total       int            `json:"total"`
	ByOccupancy map[string]int `json:"by_occupancy"`
	ByType      map[string]int `json:"by_type"`
}

// StatusTotal sums landlord payment schedules in one status.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// UpcomingDue is a landlord payment falling due soon.
type UpcomingDue struct {
	ScheduleID   int64           `json:"schedule_id"`
	DueDate      shared.Date     `json:"due_date"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	LandlordName string          `json:"landlord_name"`
	PropertyName string          `json:"property_name"`
}

// Stats is the dashboard statistics payload.
type Stats struct {
	AsOf              shared.Date                           `json:"as_of"`
	Landlords         int                                   `json:"landlords"`
	Properties        PropertyCounts                        `json:"properties"`
	ActiveContracts   int                                   `json:"active_contracts"`
	Schedules         []StatusTotal                         `json:"schedules"`
	UpcomingDues      []UpcomingDue                         `json:"upcoming_dues"`
	IncomeByFrequency map[billing.Frequency]decimal.Decimal `json:"income_by_frequency"`
	MonthlyIncome     decimal.Decimal                       `json:"monthly_equivalent_income"`
}

// ProjectSummary totals customer invoicing for one project.
type ProjectSummary struct {
	Project     string          `json:"project"`
	Schedules   int             `json:"schedules"`
	Scheduled   decimal.Decimal `json:"scheduled"`
	Invoiced    decimal.Decimal `json:"invoiced"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// MonthlyIncome folds per-frequency contract sums into one monthly figure.
func MonthlyIncome(byFrequency map[billing.Frequency]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for f, amount := range byFrequency {
		total = total.Add(billing.MonthlyEquivalent(amount, f))
	}
	return total.Round(2)
}

func dayKey(t time.Time) string {
	return shared.DateOf(t).Format(shared.DateLayout)
}
