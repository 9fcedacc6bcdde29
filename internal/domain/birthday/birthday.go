// Package birthday decides whether a reference instant falls on a recipient's
// birthday in the recipient's own timezone. The check is a pure function of
// its inputs so it can be tested against fixed fixtures without a real clock.
package birthday

import "time"

// Matches reports whether ref, observed in loc, falls on the month and day of
// birthDate. The birthdate's year is ignored entirely.
//
// Feb-29 policy: a birthdate of February 29 is observed on February 28 in
// non-leap local years, and on February 29 itself in leap years. It never
// maps to March 1.
func Matches(birthDate time.Time, loc *time.Location, ref time.Time) bool {
	local := ref.In(loc)
	month, day := local.Month(), local.Day()

	bMonth, bDay := birthDate.Month(), birthDate.Day()
	if bMonth == time.February && bDay == 29 && !isLeapYear(local.Year()) {
		bDay = 28
	}

	return month == bMonth && day == bDay
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
