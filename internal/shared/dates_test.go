package shared

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	require.Equal(t, d("2024-02-29"), AddMonths(d("2024-01-31"), 1))
	require.Equal(t, d("2023-02-28"), AddMonths(d("2023-01-31"), 1))
	require.Equal(t, d("2024-04-30"), AddMonths(d("2024-01-31"), 3))
	require.Equal(t, d("2025-01-15"), AddMonths(d("2024-01-15"), 12))
	require.Equal(t, d("2023-12-15"), AddMonths(d("2024-01-15"), -1))
}

func TestMonthsBetween(t *testing.T) {
	require.Equal(t, 0, MonthsBetween(d("2024-01-15"), d("2024-02-14")))
	require.Equal(t, 1, MonthsBetween(d("2024-01-15"), d("2024-02-15")))
	require.Equal(t, 12, MonthsBetween(d("2024-01-01"), d("2025-01-01")))
	require.Equal(t, 1, MonthsBetween(d("2024-01-31"), d("2024-02-29")))
	require.Equal(t, 0, MonthsBetween(d("2024-03-01"), d("2024-02-01")))
}

func TestDateJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		On Date `json:"on"`
	}{On: NewDate(d("2024-05-06"))})
	require.NoError(t, err)
	require.JSONEq(t, `{"on":"2024-05-06"}`, string(raw))

	var out struct {
		On Date `json:"on"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"on":"2025-12-31"}`), &out))
	require.Equal(t, d("2025-12-31"), out.On.Time)
	require.Error(t, json.Unmarshal([]byte(`{"on":"31/12/2025"}`), &out))
}

func TestValidationErrorAggregates(t *testing.T) {
	v := NewValidationError()
	require.NoError(t, v.Err())
	v.Add("latitude", "must be between -90 and 90")
	v.Add("latitude", "ignored")
	v.Add("name", "is required")
	require.EqualError(t, v.Err(), "latitude: must be between -90 and 90; name: is required")
}

func TestDateScanAndValue(t *testing.T) {
	var got Date
	require.NoError(t, got.Scan(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, d("2024-03-05"), got.Time)

	require.NoError(t, got.Scan(nil))
	require.True(t, got.IsZero())
	v, err := got.Value()
	require.NoError(t, err)
	require.Nil(t, v)

	require.Error(t, got.Scan(42))
}
