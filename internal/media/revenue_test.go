package media

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStatusOn(t *testing.T) {
	start, end := day("2024-03-01"), day("2024-03-31")
	require.Equal(t, StatusScheduled, StatusOn(start, end, day("2024-02-29")))
	require.Equal(t, StatusActive, StatusOn(start, end, start))
	require.Equal(t, StatusActive, StatusOn(start, end, end))
	require.Equal(t, StatusCompleted, StatusOn(start, end, day("2024-04-01")))
}

func TestRevenue(t *testing.T) {
	rate := decimal.NewFromInt(100)
	cases := []struct {
		name       string
		start, end string
		basis      RateBasis
		today      string
		want       string
	}{
		{"scheduled earns nothing", "2024-03-01", "2024-03-31", PerDay, "2024-02-01", "0"},
		{"per day active through today", "2024-03-01", "2024-03-31", PerDay, "2024-03-10", "1000"},
		{"per day completed through end", "2024-03-01", "2024-03-31", PerDay, "2024-06-01", "3100"},
		{"per month single full month", "2024-01-01", "2024-01-31", PerMonth, "2024-05-01", "100"},
		{"per month partial month rounds up", "2024-01-01", "2024-02-10", PerMonth, "2024-05-01", "200"},
		{"per month anniversary minus a day", "2024-01-15", "2024-02-14", PerMonth, "2024-05-01", "100"},
		{"per month active first day", "2024-01-15", "2024-12-14", PerMonth, "2024-01-15", "100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Revenue(day(tc.start), day(tc.end), rate, tc.basis, day(tc.today))
			require.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}
