// Package calendar projects occurrence dates for recurring transaction
// templates. It is pure date arithmetic with no storage access; both the
// scheduling engine and schedule previews build on it.
package calendar

import (
	"time"

	"rata/internal/core"
)

// stepOf returns the step size of a frequency: days for day-based
// frequencies, months for month-based ones.
func stepOf(f core.Frequency) (days, months int, err error) {
	switch f {
	case core.Daily:
		return 1, 0, nil
	case core.Weekly:
		return 7, 0, nil
	case core.Biweekly:
		return 14, 0, nil
	case core.Monthly:
		return 0, 1, nil
	case core.Bimonthly:
		return 0, 2, nil
	case core.Quarterly:
		return 0, 3, nil
	case core.Annual:
		return 0, 12, nil
	default:
		return 0, 0, core.ErrInvalidFrequency
	}
}

// Sequence is a lazy, finite, restartable run of occurrence dates. It
// yields dates >= max(start, rangeStart) and <= min(rangeEnd, end when
// set), in ascending order.
type Sequence struct {
	start      core.Date
	days       int
	months     int
	lowerBound core.Date
	upperBound core.Date
	n          int
}

// OccurrencesBetween builds the occurrence sequence of a schedule
// clipped to [rangeStart, rangeEnd]. end is the optional inclusive end
// date of the schedule itself; pass the zero Date for open-ended.
// The only possible error is an unknown frequency.
func OccurrencesBetween(start core.Date, freq core.Frequency, end, rangeStart, rangeEnd core.Date) (*Sequence, error) {
	days, months, err := stepOf(freq)
	if err != nil {
		return nil, err
	}

	lower := start
	if rangeStart.After(lower.Time) {
		lower = rangeStart
	}
	upper := rangeEnd
	if !end.IsEmpty() && end.Before(upper.Time) {
		upper = end
	}

	return &Sequence{
		start:      start,
		days:       days,
		months:     months,
		lowerBound: lower,
		upperBound: upper,
	}, nil
}

// Next returns the next occurrence in the range, or false when the
// sequence is exhausted.
func (s *Sequence) Next() (core.Date, bool) {
	for {
		d := s.at(s.n)
		if d.After(s.upperBound.Time) {
			return core.Date{}, false
		}
		s.n++
		if d.Before(s.lowerBound.Time) {
			continue
		}
		return d, true
	}
}

// Reset rewinds the sequence to its first occurrence.
func (s *Sequence) Reset() {
	s.n = 0
}

// at computes the n-th occurrence counted from the schedule start.
// Month-based frequencies always step from the original start date so the
// day-of-month never drifts after clamping (Jan 31 -> Feb 28 -> Mar 31).
func (s *Sequence) at(n int) core.Date {
	if s.months > 0 {
		return addMonthsClamped(s.start, n*s.months)
	}
	return core.Date{Time: s.start.AddDate(0, 0, n*s.days)}
}

// addMonthsClamped adds calendar months, clamping the day of month to the
// last day of the target month. Feb 29 anniversaries clamp to Feb 28 on
// non-leap years.
func addMonthsClamped(d core.Date, months int) core.Date {
	year, month, day := d.Date()
	m := int(month) + months
	year += (m - 1) / 12
	m = (m-1)%12 + 1

	if last := daysIn(year, m); day > last {
		day = last
	}
	return core.NewDate(year, m, day)
}

func daysIn(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
