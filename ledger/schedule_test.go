/*
schedule_test.go - Recurrence date arithmetic

The load-bearing property: month and year steps clamp the day-of-month
instead of rolling over into the next month.
*/
package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/ledger-engine/ledger"
)

func TestNextDueDate_AllFrequencies(t *testing.T) {
	from := date(2024, time.March, 10)

	cases := []struct {
		freq ledger.Frequency
		want time.Time
	}{
		{ledger.FreqDaily, date(2024, time.March, 11)},
		{ledger.FreqWeekly, date(2024, time.March, 17)},
		{ledger.FreqBiweekly, date(2024, time.March, 24)},
		{ledger.FreqMonthly, date(2024, time.April, 10)},
		{ledger.FreqYearly, date(2025, time.March, 10)},
	}
	for _, tc := range cases {
		t.Run(string(tc.freq), func(t *testing.T) {
			assert.Equal(t, tc.want, ledger.NextDueDate(tc.freq, from))
		})
	}
}

func TestNextDueDate_MonthlyClampsShortMonths(t *testing.T) {
	// Jan 31 -> Feb 28 (or 29 in leap years), never Mar 2/3
	assert.Equal(t, date(2023, time.February, 28),
		ledger.NextDueDate(ledger.FreqMonthly, date(2023, time.January, 31)))
	assert.Equal(t, date(2024, time.February, 29),
		ledger.NextDueDate(ledger.FreqMonthly, date(2024, time.January, 31)))
	assert.Equal(t, date(2024, time.April, 30),
		ledger.NextDueDate(ledger.FreqMonthly, date(2024, time.March, 31)))
	// December wraps the year
	assert.Equal(t, date(2025, time.January, 15),
		ledger.NextDueDate(ledger.FreqMonthly, date(2024, time.December, 15)))
}

func TestNextDueDate_YearlyClampsLeapDay(t *testing.T) {
	assert.Equal(t, date(2025, time.February, 28),
		ledger.NextDueDate(ledger.FreqYearly, date(2024, time.February, 29)))
}

func TestNextDueDate_UnknownFrequencyUnchanged(t *testing.T) {
	from := date(2024, time.March, 10)
	assert.Equal(t, from, ledger.NextDueDate("fortnightly", from))
}

func TestShiftToMonth_ClampsAndKeepsTimeOfDay(t *testing.T) {
	at := time.Date(2023, time.January, 31, 14, 30, 0, 0, time.UTC)
	shifted := ledger.ShiftToMonth(at, 2023, time.February)
	assert.Equal(t, time.Date(2023, time.February, 28, 14, 30, 0, 0, time.UTC), shifted)

	// Plenty of room: day is kept
	assert.Equal(t, date(2023, time.July, 15), ledger.ShiftToMonth(date(2023, time.March, 15), 2023, time.July))
}

func TestMonthBounds(t *testing.T) {
	start, end := ledger.MonthBounds(date(2024, time.February, 14))
	assert.Equal(t, date(2024, time.February, 1), start)
	assert.Equal(t, time.February, end.Month())
	assert.Equal(t, 29, end.Day())
	assert.True(t, end.Before(date(2024, time.March, 1)))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, ledger.DaysInMonth(2024, time.February))
	assert.Equal(t, 28, ledger.DaysInMonth(2023, time.February))
	assert.Equal(t, 31, ledger.DaysInMonth(2024, time.December))
	assert.Equal(t, 30, ledger.DaysInMonth(2024, time.April))
}

func TestSameMonth(t *testing.T) {
	assert.True(t, ledger.SameMonth(date(2024, time.March, 1), date(2024, time.March, 31)))
	assert.False(t, ledger.SameMonth(date(2024, time.March, 1), date(2023, time.March, 1)))
	assert.False(t, ledger.SameMonth(date(2024, time.March, 31), date(2024, time.April, 1)))
}
