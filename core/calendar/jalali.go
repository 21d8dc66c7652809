// Package calendar converts Gregorian dates to the Solar Hijri (Jalali) calendar.
package calendar

import (
	"fmt"
	"time"
)

// Date is a Jalali calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String renders the date as YYYY/MM/DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

var monthOffsets = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// ToJalali converts a proleptic Gregorian date. Month is 1-based.
//
// The arithmetic uses two epochs (before and after the year 1600), so
// 1600-12-31 and 1601-01-01 are two Jalali days apart.
func ToJalali(gy, gm, gd int) Date {
	var jy int
	if gy > 1600 {
		jy = 979
		gy -= 1600
	} else {
		jy = 0
		gy -= 621
	}
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 365*gy + floorDiv(gy2+3, 4) - floorDiv(gy2+99, 100) + floorDiv(gy2+399, 400) - 80 + gd + monthOffsets[gm-1]

	jy += 33 * floorDiv(days, 12053)
	days = floorMod(days, 12053)
	jy += 4 * floorDiv(days, 1461)
	days = floorMod(days, 1461)
	if days > 365 {
		jy += floorDiv(days-1, 365)
		days = floorMod(days-1, 365)
	}

	var jm, jd int
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return Date{Year: jy, Month: jm, Day: jd}
}

// FromTime converts the calendar date of t in its own location.
func FromTime(t time.Time) Date {
	return ToJalali(t.Year(), int(t.Month()), t.Day())
}

// Stamp renders t in loc as "YYYY/MM/DD HH:MM" using the Jalali date.
// A nil loc keeps t's location.
func Stamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%s %02d:%02d", FromTime(t), t.Hour(), t.Minute())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
