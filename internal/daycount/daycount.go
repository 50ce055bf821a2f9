// Package daycount provides year-fraction conventions and UK business-day
// calendar arithmetic used throughout the simulation engine.
package daycount

import (
	"time"

	"github.com/meridian-analytics/clo-engine/internal/clerr"
)

// Convention identifies a day-count basis.
type Convention string

const (
	// ACT360 counts actual days elapsed over a 360-day year.
	ACT360 Convention = "ACT/360"
	// Thirty360EISDA is the 30E/360 ISDA convention: both the from- and
	// to-date are capped at day 30 before the (360*dy+30*dm+dd)/360 count.
	Thirty360EISDA Convention = "30E/360_ISDA"
)

// YearFraction returns the fraction of a year between from and to under
// the given convention. from and to need not be ordered; a to before from
// yields a negative fraction.
func YearFraction(from, to time.Time, convention Convention) (float64, error) {
	switch convention {
	case ACT360:
		days := to.Sub(from).Hours() / 24.0
		return days / 360.0, nil
	case Thirty360EISDA:
		d1, d2 := eisdaDay(from), eisdaDay(to)
		y1, m1 := from.Year(), int(from.Month())
		y2, m2 := to.Year(), int(to.Month())
		count := 360*(y2-y1) + 30*(m2-m1) + (d2 - d1)
		return float64(count) / 360.0, nil
	default:
		return 0, clerr.New(clerr.UnsupportedConfiguration, string(convention), "unknown day-count convention")
	}
}

// eisdaDay caps day-of-month at 30, per 30E/360 ISDA — including at
// month-end, unconditionally (no "unless it's February" carve-out).
func eisdaDay(d time.Time) int {
	day := d.Day()
	if day > 30 {
		return 30
	}
	return day
}

// SafeSetDay returns t's year and month with the day clamped to the last
// valid day of that month when day exceeds it.
func SafeSetDay(t time.Time, day int) time.Time {
	last := daysInMonth(t.Year(), t.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsUKBusinessDay reports whether t is a weekday and not a GOV.UK bank
// holiday.
func IsUKBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !ukHolidays[t.Format("2006-01-02")]
}

// AddUKBusinessDays advances t by n UK business days; n may be negative,
// in which case it steps backward. n == 0 returns t unchanged even if t
// itself is not a business day (the function is a pure offset, it does
// not roll to the nearest business day).
func AddUKBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsUKBusinessDay(t) {
			n -= step
		}
	}
	return t
}

// SubUKBusinessDays is AddUKBusinessDays(t, -n).
func SubUKBusinessDays(t time.Time, n int) time.Time {
	return AddUKBusinessDays(t, -n)
}

// AddMonthsClamped adds n months to t, clamping the resulting day to the
// last day of the target month (the "safe_set_day" policy applied after a
// calendar-month add, avoiding Go's date-overflow rollover for e.g. Jan 31
// + 1 month).
func AddMonthsClamped(t time.Time, n int) time.Time {
	day := t.Day()
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	advanced := firstOfMonth.AddDate(0, n, 0)
	return SafeSetDay(advanced, day)
}

// ukHolidays is the GOV.UK bank holiday set (England & Wales) spanning the
// horizon any realistic CLO projection will reach. Sourced as a literal
// set rather than computed, matching how the source system treats bank
// holidays as a published list rather than a derivable rule.
var ukHolidays = buildHolidaySet([]string{
	"2023-01-02", "2023-04-07", "2023-04-10", "2023-05-01", "2023-05-08",
	"2023-05-29", "2023-08-28", "2023-12-25", "2023-12-26",
	"2024-01-01", "2024-03-29", "2024-04-01", "2024-05-06", "2024-05-27",
	"2024-08-26", "2024-12-25", "2024-12-26",
	"2025-01-01", "2025-04-18", "2025-04-21", "2025-05-05", "2025-05-26",
	"2025-08-25", "2025-12-25", "2025-12-26",
	"2026-01-01", "2026-04-03", "2026-04-06", "2026-05-04", "2026-05-25",
	"2026-08-31", "2026-12-25", "2026-12-28",
	"2027-01-01", "2027-03-26", "2027-03-29", "2027-05-03", "2027-05-31",
	"2027-08-30", "2027-12-27", "2027-12-28",
	"2028-01-03", "2028-04-14", "2028-04-17", "2028-05-01", "2028-05-29",
	"2028-08-28", "2028-12-25", "2028-12-26",
	"2029-01-01", "2029-03-30", "2029-04-02", "2029-05-07", "2029-05-28",
	"2029-08-27", "2029-12-25", "2029-12-26",
	"2030-01-01", "2030-04-19", "2030-04-22", "2030-05-06", "2030-05-27",
	"2030-08-26", "2030-12-25", "2030-12-26",
	"2031-01-01", "2031-04-11", "2031-04-14", "2031-05-05", "2031-05-26",
	"2031-08-25", "2031-12-25", "2031-12-26",
	"2032-01-01", "2032-03-26", "2032-03-29", "2032-05-03", "2032-05-31",
	"2032-08-30", "2032-12-27", "2032-12-28",
	"2033-01-03", "2033-04-15", "2033-04-18", "2033-05-02", "2033-05-30",
	"2033-08-29", "2033-12-26", "2033-12-27",
	"2034-01-02", "2034-04-07", "2034-04-10", "2034-05-01", "2034-05-29",
	"2034-08-28", "2034-12-25", "2034-12-26",
	"2035-01-01", "2035-03-23", "2035-03-26", "2035-05-07", "2035-05-28",
	"2035-08-27", "2035-12-25", "2035-12-26",
	"2036-01-01", "2036-04-11", "2036-04-14", "2036-05-05", "2036-05-26",
	"2036-08-25", "2036-12-25", "2036-12-26",
})

func buildHolidaySet(dates []string) map[string]bool {
	m := make(map[string]bool, len(dates))
	for _, d := range dates {
		m[d] = true
	}
	return m
}
