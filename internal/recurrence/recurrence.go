// Package recurrence implements the calendar arithmetic behind recurring
// planned items: stepping a start date by days, weeks, months or years and
// finding the next occurrence after a reference time.
//
// Each occurrence is the previous one advanced by one step. Month and year
// steps clamp the day to the last day of the target month and carry the
// clamped day forward, so a schedule starting on Jan 31 yields Feb 28, then
// Mar 28, Apr 28 and so on.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Unit is the step unit of a schedule.
type Unit string

const (
	Day   Unit = "day"
	Week  Unit = "week"
	Month Unit = "month"
	Year  Unit = "year"
)

// ErrInvalidSchedule is returned by Validate for malformed schedules.
var ErrInvalidSchedule = errors.New("recurrence: invalid schedule")

// Schedule describes when a recurring item occurs.
type Schedule struct {
	Unit     Unit
	Interval int
	Start    time.Time
	End      *time.Time
}

// Validate checks the unit, interval and date bounds.
func (s Schedule) Validate() error {
	switch s.Unit {
	case Day, Week, Month, Year:
	default:
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidSchedule, s.Unit)
	}
	if s.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1", ErrInvalidSchedule)
	}
	if s.End != nil && s.End.Before(s.Start) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidSchedule)
	}
	return nil
}

// Step advances t by one interval of the schedule's unit.
func (s Schedule) Step(t time.Time) time.Time {
	switch s.Unit {
	case Week:
		return t.AddDate(0, 0, 7*s.Interval)
	case Month:
		return AddMonths(t, s.Interval)
	case Year:
		return AddMonths(t, 12*s.Interval)
	default:
		return t.AddDate(0, 0, s.Interval)
	}
}

// Next returns the first occurrence strictly after ref, walking forward from
// Start one step at a time. The second result is false when the schedule is
// invalid or that occurrence falls after End.
func (s Schedule) Next(ref time.Time) (time.Time, bool) {
	if s.Validate() != nil {
		return time.Time{}, false
	}

	next := s.skipAhead(ref)
	for !next.After(ref) {
		next = s.Step(next)
	}

	if s.End != nil && next.After(*s.End) {
		return time.Time{}, false
	}
	return next, true
}

// skipAhead jumps day and week schedules straight to the last occurrence at
// or before ref. Their steps have a fixed length, so the jump lands on the
// same date the step-by-step walk would reach. Month and year schedules
// start from Start since clamped days change the later occurrences.
func (s Schedule) skipAhead(ref time.Time) time.Time {
	if !ref.After(s.Start) {
		return s.Start
	}
	var stepDays int
	switch s.Unit {
	case Day:
		stepDays = s.Interval
	case Week:
		stepDays = 7 * s.Interval
	default:
		return s.Start
	}
	days := int(ref.Sub(s.Start).Hours() / 24)
	return s.Start.AddDate(0, 0, (days/stepDays)*stepDays)
}

// AddMonths adds n calendar months to t, clamping the day to the last day of
// the resulting month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	ty := y + floorDiv(total, 12)
	tm := time.Month(total - floorDiv(total, 12)*12 + 1)
	if last := DaysIn(ty, tm); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in month m of year y.
func DaysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Due reports whether an occurrence on next should be generated when looking
// daysInAdvance days ahead of ref.
func Due(next, ref time.Time, daysInAdvance int) bool {
	return !next.After(ref.AddDate(0, 0, daysInAdvance))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
