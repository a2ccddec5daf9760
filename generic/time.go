/*
Package generic provides the calendar primitives shared by every fleet view.

PURPOSE:
  All day/month/year boundary math lives here. Callers normalize through
  these functions before comparing instants; raw, unnormalized timestamps
  are never compared directly.

KEY CONCEPTS IN THIS FILE (time.go):
  - Day: a local calendar day (year, month, day), usable as a map key
  - StartOfDay / EndOfDay: first / last millisecond of the local day
  - StartOfMonth / EndOfMonth / StartOfYear / EndOfYear
  - DayKey: canonical YYYY-MM-DD key from local calendar fields

TIMEZONE:
  Everything is local-calendar-day granularity (time.Local). There is no
  timezone-aware math beyond that.

SEE ALSO:
  - interval.go: closed intervals and overlap
  - errors.go: shared error types
*/
package generic

import (
	"fmt"
	"time"
)

// DayKeyLayout is the canonical day key format.
const DayKeyLayout = "2006-01-02"

// lastMillisecond is the inclusive end-of-day offset from the next midnight.
const lastMillisecond = time.Millisecond

// =============================================================================
// DAY - Local calendar day
// =============================================================================

// Day is a local calendar day. The zero value is "no day".
type Day struct {
	year  int
	month time.Month
	day   int
}

// NewDay builds a Day, normalizing out-of-range values the way time.Date does
// (e.g. Feb 30 becomes Mar 2).
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 12, 0, 0, 0, time.Local))
}

// DayOf returns the local calendar day containing t.
func DayOf(t time.Time) Day {
	y, m, d := t.In(time.Local).Date()
	return Day{year: y, month: m, day: d}
}

// Today returns the current local calendar day.
func Today() Day { return DayOf(time.Now()) }

// ParseDay parses a YYYY-MM-DD key as a local calendar day.
func ParseDay(key string) (Day, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.Local)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrUnparseableDate, key)
	}
	return DayOf(t), nil
}

// Properties
func (d Day) Year() int         { return d.year }
func (d Day) Month() time.Month { return d.month }
func (d Day) DayOfMonth() int   { return d.day }
func (d Day) IsZero() bool      { return d.year == 0 && d.month == 0 && d.day == 0 }

// Start is the first local instant of the day. That is midnight, except in
// zones whose DST transition skips midnight, where the day begins at the
// transition.
func (d Day) Start() time.Time {
	t := time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.Local)
	if DayOf(t) == d {
		return t
	}
	// time.Date resolved the missing midnight into the previous day; the zone
	// in effect there ends exactly where this day begins.
	if _, end := t.ZoneBounds(); !end.IsZero() && DayOf(end) == d {
		return end
	}
	for i := 0; i < 24*60 && DayOf(t).Before(d); i++ {
		t = t.Add(time.Minute)
	}
	return t
}

// End is the last millisecond of the day, inclusive.
func (d Day) End() time.Time {
	return d.AddDays(1).Start().Add(-lastMillisecond)
}

// Key returns the YYYY-MM-DD key.
func (d Day) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func (d Day) String() string { return d.Key() }

// Comparison
func (d Day) Compare(other Day) int {
	switch {
	case d.year != other.year:
		return cmpInt(d.year, other.year)
	case d.month != other.month:
		return cmpInt(int(d.month), int(other.month))
	default:
		return cmpInt(d.day, other.day)
	}
}

func (d Day) Before(other Day) bool        { return d.Compare(other) < 0 }
func (d Day) After(other Day) bool         { return d.Compare(other) > 0 }
func (d Day) Equal(other Day) bool         { return d == other }
func (d Day) BeforeOrEqual(other Day) bool { return d.Compare(other) <= 0 }
func (d Day) AfterOrEqual(other Day) bool  { return d.Compare(other) >= 0 }

// AddDays is calendar arithmetic, so DST days still step by one day.
func (d Day) AddDays(n int) Day { return NewDay(d.year, d.month, d.day+n) }

// MinDay and MaxDay order two days.
func MinDay(a, b Day) Day {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDay(a, b Day) Day {
	if a.After(b) {
		return a
	}
	return b
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// =============================================================================
// BUCKET BOUNDARIES
// =============================================================================

// StartOfDay floors t to the first instant of its local calendar day.
func StartOfDay(t time.Time) time.Time {
	return DayOf(t).Start()
}

// EndOfDay ceils t to the last millisecond of its local calendar day.
func EndOfDay(t time.Time) time.Time {
	return DayOf(t).End()
}

func StartOfMonth(year int, month time.Month) time.Time {
	return NewDay(year, month, 1).Start()
}

func EndOfMonth(year int, month time.Month) time.Time {
	return NewDay(year, month+1, 1).Start().Add(-lastMillisecond)
}

func StartOfYear(year int) time.Time { return StartOfMonth(year, time.January) }
func EndOfYear(year int) time.Time   { return EndOfMonth(year, time.December) }

// DayKey returns the YYYY-MM-DD key of t's local calendar day.
func DayKey(t time.Time) string { return DayOf(t).Key() }

// MonthKey returns YYYY-MM.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// DaysBetween counts calendar days from `from` to `to` (negative if to is earlier).
func DaysBetween(from, to Day) int {
	// Noon anchors keep DST transitions from shaving an hour off the quotient.
	a := time.Date(from.year, from.month, from.day, 12, 0, 0, 0, time.UTC)
	b := time.Date(to.year, to.month, to.day, 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
