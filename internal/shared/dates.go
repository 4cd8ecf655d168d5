package shared

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t as UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months to d, clamping to the last day of the target
// month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(d time.Time, n int) time.Time {
	d = DateOf(d)
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween counts the whole months elapsed from start to end using the
// same clamping as AddMonths. It returns 0 when end is before start.
func MonthsBetween(start, end time.Time) int {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	for months > 0 && AddMonths(start, months).After(end) {
		months--
	}
	return months
}

// DaysBetween returns the number of days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(DateOf(end).Sub(DateOf(start)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Date is a calendar date that travels as YYYY-MM-DD in JSON.
type Date struct {
	time.Time
}

// NewDate wraps t as a Date.
func NewDate(t time.Time) Date { return Date{Time: DateOf(t)} }

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(*raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Clock yields the current calendar date. All "today" comparisons go through it.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the wall clock in Location.
type SystemClock struct {
	Location *time.Location
}

// Today implements Clock.
func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// FixedClock always returns the same date.
type FixedClock time.Time

// Today implements Clock.
func (c FixedClock) Today() time.Time { return DateOf(time.Time(c)) }

// Scan implements sql.Scanner for DATE columns; NULL scans to the zero Date.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = DateOf(v)
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return err
		}
		d.Time = t
	default:
		return fmt.Errorf("shared: cannot scan %T into Date", src)
	}
	return nil
}

// Value implements driver.Valuer; the zero Date is stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}
