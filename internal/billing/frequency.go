// Package billing turns a rental contract into a dated series of billing
// entries. It is pure date and money arithmetic shared by landlord payment
// schedules and customer invoicing schedules.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Frequency is a billing or escalation cadence.
type Frequency string

const (
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
	Annually  Frequency = "Annually"
)

// Frequencies lists the supported cadences in ascending period order.
var Frequencies = []Frequency{Monthly, Quarterly, Annually}

// Months returns the period length in months, or 0 for an unknown cadence.
func (f Frequency) Months() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Annually:
		return 12
	default:
		return 0
	}
}

// Valid reports whether f is a supported cadence.
func (f Frequency) Valid() bool {
	return f.Months() > 0
}

// ParseFrequency converts user input into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("billing: unknown frequency %q", s)
	}
	return f, nil
}

// MonthlyEquivalent spreads an amount billed at f over one month, so quarterly
// 900 contributes 300 and annual 1200 contributes 100.
func MonthlyEquivalent(amount decimal.Decimal, f Frequency) decimal.Decimal {
	months := f.Months()
	if months == 0 {
		return decimal.Zero
	}
	if months == 1 {
		return amount
	}
	return amount.Div(decimal.NewFromInt(int64(months)))
}
