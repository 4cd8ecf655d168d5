package media

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// StatusOn derives the rental status for today.
func StatusOn(start, end, today time.Time) RentalStatus {
	start, end, today = shared.DateOf(start), shared.DateOf(end), shared.DateOf(today)
	switch {
	case today.Before(start):
		return StatusScheduled
	case today.After(end):
		return StatusCompleted
	default:
		return StatusActive
	}
}

// Revenue returns the amount billed so far: nothing before the start, start
// through today while active, start through end once completed.
func Revenue(start, end time.Time, rate decimal.Decimal, basis RateBasis, today time.Time) decimal.Decimal {
	var through time.Time
	switch StatusOn(start, end, today) {
	case StatusScheduled:
		return decimal.Zero
	case StatusActive:
		through = shared.DateOf(today)
	default:
		through = shared.DateOf(end)
	}
	return rate.Mul(decimal.NewFromInt(int64(billedUnits(shared.DateOf(start), through, basis)))).Round(2)
}

// billedUnits counts inclusive days, or whole months plus one for the
// partial month that always remains of an inclusive range.
func billedUnits(start, through time.Time, basis RateBasis) int {
	if basis == PerMonth {
		return shared.MonthsBetween(start, through) + 1
	}
	return shared.DaysBetween(start, through) + 1
}
