package core

import "time"

// CycleDates holds the three schedule dates surrounding a reference month.
type CycleDates struct {
	Previous Date
	Current  Date
	Next     Date
}

// LastDayOfMonth returns the number of days in (month, year).
func LastDayOfMonth(month, year int) int {
	// Day zero of the following month; time.Date normalizes month 13.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CycleDate returns the cycle date for an anchor day in (month, year).
// An anchor day past the month's end clamps to the month's last day, so
// anchor 31 lands on Feb 29 in a leap year and Feb 28 otherwise.
func CycleDate(anchorDay, month, year int) Date {
	day := anchorDay
	if last := LastDayOfMonth(month, year); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// Cycles computes the previous, current and next cycle dates of a recurring
// obligation against a reference month.
//
// Current is the clamped anchor date in the reference month and next the one
// in the month after, rolling the year over at December. Previous is the
// last fulfilled date when one exists (already known-accurate); otherwise it
// is the clamped anchor date in the month before, rolling over at January.
func Cycles(anchorDay, month, year int, lastFulfilled Date) CycleDates {
	current := CycleDate(anchorDay, month, year)

	var previous Date
	if !lastFulfilled.IsEmpty() {
		previous = lastFulfilled
	} else {
		prevMonth, prevYear := month-1, year
		if prevMonth < 1 {
			prevMonth = 12
			prevYear--
		}
		previous = CycleDate(anchorDay, prevMonth, prevYear)
	}

	nextMonth, nextYear := month+1, year
	if nextMonth > 12 {
		nextMonth = 1
		nextYear++
	}
	next := CycleDate(anchorDay, nextMonth, nextYear)

	return CycleDates{Previous: previous, Current: current, Next: next}
}

// ElapsedWholeMonths counts calendar-month boundaries crossed between start
// and today. The day of month is ignored: Jan 31 to Feb 1 is one month.
func ElapsedWholeMonths(start, today Date) int {
	return (today.Year()-start.Year())*12 + (today.Month() - start.Month())
}
