package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekKeyISOBoundaries(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2024-01-01", "2024-W01"}, // Monday, week 1
		{"2023-12-31", "2023-W52"}, // Sunday before
		{"2021-01-01", "2020-W53"}, // Friday, belongs to previous ISO year
		{"2021-01-04", "2021-W01"},
		{"2026-12-28", "2026-W53"},
		{"2024-03-05", "2024-W10"},
		{"2024-12-30", "2025-W01"}, // Monday, belongs to next ISO year
	}
	for _, tc := range cases {
		d, err := time.Parse("2006-01-02", tc.date)
		require.NoError(t, err)
		assert.Equal(t, tc.want, WeekKey(d), "date %s", tc.date)
	}
}

func TestWeekKeyIgnoresTimeOfDay(t *testing.T) {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{
		base,
		base.Add(7 * time.Hour),
		base.Add(23*time.Hour + 59*time.Minute),
	} {
		assert.Equal(t, "2024-W10", WeekKey(d))
	}
}

func TestWeekKeyMonotonic(t *testing.T) {
	prev := ""
	d := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		key := WeekKey(d)
		if prev != "" {
			// ISO year rollover keeps keys string-comparable within
			// the window because the year component leads.
			assert.GreaterOrEqual(t, key, prev)
		}
		prev = key
		d = d.AddDate(0, 0, 1)
	}
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-12", MonthKey(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "0987-01", MonthKey(time.Date(987, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestKeyValidation(t *testing.T) {
	assert.True(t, IsWeekKey("2024-W01"))
	assert.True(t, IsWeekKey("2024-W53"))
	assert.False(t, IsWeekKey("2024-w01"))
	assert.False(t, IsWeekKey("2024-W1"))
	assert.False(t, IsWeekKey("2024-03"))

	assert.True(t, IsMonthKey("2024-03"))
	assert.False(t, IsMonthKey("2024-13"))
	assert.False(t, IsMonthKey("2024-W01"))
	assert.False(t, IsMonthKey("2024-3"))
}

func TestWeekKeysForMonth(t *testing.T) {
	keys, err := WeekKeysForMonth("2024-03")
	require.NoError(t, err)
	// March 2024: Friday the 1st sits in W09; the month ends in W13.
	assert.Equal(t, []string{"2024-W09", "2024-W10", "2024-W11", "2024-W12", "2024-W13"}, keys)

	keys, err = WeekKeysForMonth("2024-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-W01", keys[0]) // Jan 1st 2024 is a Monday

	_, err = WeekKeysForMonth("not-a-month")
	assert.Error(t, err)
}
