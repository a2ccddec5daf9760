package generic

import "time"

// =============================================================================
// INTERVAL - Closed time interval, the unit of overlap math
// =============================================================================

// Interval is a closed interval [Start, End].
//
// Examples:
//   - Day bucket:   2025-03-15 00:00:00.000 .. 2025-03-15 23:59:59.999
//   - Month bucket: 2025-02-01 00:00:00.000 .. 2025-02-28 23:59:59.999
//   - Booking:      StartOfDay(pickup) .. EndOfDay(return)
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewDayInterval normalizes a pair of raw bounds onto day boundaries.
// A zero bound takes the value of the other one, inverted bounds are swapped.
// Returns false only when both bounds are missing.
func NewDayInterval(start, end time.Time) (Interval, bool) {
	switch {
	case start.IsZero() && end.IsZero():
		return Interval{}, false
	case start.IsZero():
		start = end
	case end.IsZero():
		end = start
	}
	if end.Before(start) {
		start, end = end, start
	}
	return Interval{Start: StartOfDay(start), End: EndOfDay(end)}, true
}

// DayBucket covers one calendar day.
func DayBucket(d Day) Interval {
	return Interval{Start: d.Start(), End: d.End()}
}

// DaysBucket covers [from, to] inclusive.
func DaysBucket(from, to Day) Interval {
	return Interval{Start: from.Start(), End: to.End()}
}

// MonthBucket covers one calendar month.
func MonthBucket(year int, month time.Month) Interval {
	return Interval{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// YearBucket covers one calendar year.
func YearBucket(year int) Interval {
	return Interval{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Validate reports ErrInvalidInterval for End < Start.
func (i Interval) Validate() error {
	if i.End.Before(i.Start) {
		return ErrInvalidInterval
	}
	return nil
}

// Contains returns true if t is within [Start, End].
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// ContainsDay returns true if any instant of d is inside the interval.
func (i Interval) ContainsDay(d Day) bool {
	return Overlap(i, DayBucket(d)) > 0
}

// Duration is End - Start, never negative.
func (i Interval) Duration() time.Duration {
	if i.End.Before(i.Start) {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Span is the proration divisor: Duration floored to one normalized
// calendar day (the day Start falls on). A single-day booking therefore
// divides by exactly its own day bucket, DST days included.
func (i Interval) Span() time.Duration {
	minimum := DayBucket(i.FirstDay()).Duration()
	if d := i.Duration(); d > minimum {
		return d
	}
	return minimum
}

// FirstDay and LastDay are the calendar days of the bounds.
func (i Interval) FirstDay() Day { return DayOf(i.Start) }
func (i Interval) LastDay() Day  { return DayOf(i.End) }

// Days returns every calendar day the interval touches, in order.
func (i Interval) Days() []Day {
	if i.End.Before(i.Start) {
		return nil
	}
	var days []Day
	last := i.LastDay()
	for d := i.FirstDay(); d.BeforeOrEqual(last); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (i Interval) String() string {
	return "[" + i.Start.Format(time.RFC3339) + ", " + i.End.Format(time.RFC3339) + "]"
}

// =============================================================================
// OVERLAP
// =============================================================================

// Overlap returns max(0, min(aEnd, bEnd) - max(aStart, bStart)).
// Disjoint intervals and intervals touching at a single instant give 0.
func Overlap(a, b Interval) time.Duration {
	start := laterOf(a.Start, b.Start)
	end := earlierOf(a.End, b.End)
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// Intersect returns the clamped interval shared by a and b.
func Intersect(a, b Interval) (Interval, bool) {
	start := laterOf(a.Start, b.Start)
	end := earlierOf(a.End, b.End)
	if end.Before(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// Union returns the smallest interval covering both a and b.
func Union(a, b Interval) Interval {
	return Interval{Start: earlierOf(a.Start, b.Start), End: laterOf(a.End, b.End)}
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
