// schedule.go - Date arithmetic for recurring transactions and month cloning.
//
// The engine clamps instead of rolling over: advancing Jan 31 by one month
// yields Feb 28 (or 29), never Mar 3. time.AddDate would roll over, so month
// and year steps are built from explicit day-of-month clamping. This is also
// why teambition/rrule-go is not used here: its monthly rules skip months
// that lack the day rather than clamping.
package ledger

import "time"

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds a date in year/month keeping day where possible,
// clamped to the month's actual length.
func clampedDate(year int, month time.Month, day int, ref time.Time) time.Time {
	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day,
		ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}

// NextDueDate advances from by exactly one frequency step.
func NextDueDate(freq Frequency, from time.Time) time.Time {
	switch freq {
	case FreqDaily:
		return from.AddDate(0, 0, 1)
	case FreqWeekly:
		return from.AddDate(0, 0, 7)
	case FreqBiweekly:
		return from.AddDate(0, 0, 14)
	case FreqMonthly:
		y, m, d := from.Date()
		m++
		if m > time.December {
			m = time.January
			y++
		}
		return clampedDate(y, m, d, from)
	case FreqYearly:
		y, m, d := from.Date()
		return clampedDate(y+1, m, d, from)
	}
	return from
}

// ShiftToMonth moves date into the target month, keeping the day-of-month
// clamped to the days actually present there. Used by month cloning.
func ShiftToMonth(date time.Time, targetYear int, targetMonth time.Month) time.Time {
	return clampedDate(targetYear, targetMonth, date.Day(), date)
}

// MonthBounds returns the first and last instant of the calendar month
// containing t.
func MonthBounds(t time.Time) (start, end time.Time) {
	y, m, _ := t.Date()
	start = time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
