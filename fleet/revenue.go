package fleet

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/generic"
)

// =============================================================================
// PRORATION - Attribute booking prices to calendar buckets
// =============================================================================
//
// A booking contributes Overlap(booking, bucket) / Span(booking) of its total
// price to a bucket. Summed over every bucket a booking touches, the shares
// add back up to the total price (within the millisecond lost at each
// inclusive day boundary).
//
// Example: Jan 31 - Feb 3, total 400
//   January  : 1 day of 4 -> 100
//   February : 3 days of 4 -> 300

// Share is one booking's contribution to bucket.
func Share(b BookingInterval, bucket generic.Interval) decimal.Decimal {
	overlap := generic.Overlap(b.Interval, bucket)
	if overlap == 0 {
		return decimal.Zero
	}
	return generic.Fraction(overlap, b.Interval.Span()).Mul(b.TotalPrice)
}

// AttributeToBucket sums every booking's share of bucket.
func AttributeToBucket(bookings []BookingInterval, bucket generic.Interval) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bookings {
		total = total.Add(Share(b, bucket))
	}
	return total
}

// MonthlyRevenue returns one value per month of year, January first.
func MonthlyRevenue(bookings []BookingInterval, year int) [12]decimal.Decimal {
	var out [12]decimal.Decimal
	for m := time.January; m <= time.December; m++ {
		out[m-1] = AttributeToBucket(bookings, generic.MonthBucket(year, m))
	}
	return out
}

// YearOverYear returns the twelve-point series for year and year-1.
func YearOverYear(bookings []BookingInterval, year int) (current, previous [12]decimal.Decimal) {
	return MonthlyRevenue(bookings, year), MonthlyRevenue(bookings, year-1)
}

// MonthlyBuckets is MonthlyRevenue keyed by YYYY-MM.
func MonthlyBuckets(bookings []BookingInterval, year int) []RevenueBucket {
	values := MonthlyRevenue(bookings, year)
	out := make([]RevenueBucket, 0, len(values))
	for i, v := range values {
		out = append(out, RevenueBucket{Key: generic.MonthKey(year, time.Month(i+1)), Revenue: v})
	}
	return out
}

// DayRevenue is the revenue attributed to a single day.
func DayRevenue(bookings []BookingInterval, day generic.Day) decimal.Decimal {
	return AttributeToBucket(bookings, generic.DayBucket(day))
}

// MonthRevenue is the revenue attributed to a single month.
func MonthRevenue(bookings []BookingInterval, year int, month time.Month) decimal.Decimal {
	return AttributeToBucket(bookings, generic.MonthBucket(year, month))
}

// DailyRevenue returns one bucket per day in [from, to], keyed by day key.
func DailyRevenue(bookings []BookingInterval, from, to generic.Day) []RevenueBucket {
	if to.Before(from) {
		return nil
	}
	out := make([]RevenueBucket, 0, generic.DaysBetween(from, to)+1)
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		out = append(out, RevenueBucket{Key: d.Key(), Revenue: DayRevenue(bookings, d)})
	}
	return out
}

// =============================================================================
// COUNTERS
// =============================================================================

// CountOverlapping counts bookings with a non-zero overlap with bucket.
func CountOverlapping(bookings []BookingInterval, bucket generic.Interval) int {
	n := 0
	for _, b := range bookings {
		if generic.Overlap(b.Interval, bucket) > 0 {
			n++
		}
	}
	return n
}

// CountPickups counts bookings whose start falls inside bucket.
func CountPickups(bookings []BookingInterval, bucket generic.Interval) int {
	n := 0
	for _, b := range bookings {
		if bucket.Contains(b.Interval.Start) {
			n++
		}
	}
	return n
}

// CountReturns counts bookings whose end falls inside bucket.
func CountReturns(bookings []BookingInterval, bucket generic.Interval) int {
	n := 0
	for _, b := range bookings {
		if bucket.Contains(b.Interval.End) {
			n++
		}
	}
	return n
}

// IsActive reports whether today lies within the booking's [start, end].
func IsActive(b BookingInterval, today generic.Day) bool {
	return b.Interval.ContainsDay(today)
}

// CountActive counts bookings active on today.
func CountActive(bookings []BookingInterval, today generic.Day) int {
	n := 0
	for _, b := range bookings {
		if IsActive(b, today) {
			n++
		}
	}
	return n
}

// =============================================================================
// DASHBOARD SUMMARY
// =============================================================================

// DashboardSummary feeds the dashboard cards. Values are unrounded.
type DashboardSummary struct {
	Date             generic.Day
	TodayRevenue     decimal.Decimal
	ThisMonthRevenue decimal.Decimal
	LastMonthRevenue decimal.Decimal
	PickupsToday     int
	ReturnsToday     int
	ActiveBookings   int
	BusyVehicles     int
	IdleVehicles     int
	TotalVehicles    int
	UtilizationPct   decimal.Decimal
}

// Summarize computes the dashboard cards for today. Only bookings whose
// status is in countable contribute.
func Summarize(snap Snapshot, today generic.Day, countable StatusSet) DashboardSummary {
	bookings := FilterBookings(snap.Bookings, countable)
	todayBucket := generic.DayBucket(today)
	lastMonth := generic.NewDay(today.Year(), today.Month()-1, 1)

	busy := make(map[VehicleID]bool)
	active := 0
	for _, b := range bookings {
		if IsActive(b, today) {
			active++
			busy[b.VehicleID] = true
		}
	}

	total := len(snap.Vehicles)
	busyCount := 0
	for _, v := range snap.Vehicles {
		if busy[v.ID] {
			busyCount++
		}
	}

	utilization := decimal.Zero
	if total > 0 {
		utilization = decimal.NewFromInt(int64(busyCount)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(total)))
	}

	return DashboardSummary{
		Date:             today,
		TodayRevenue:     AttributeToBucket(bookings, todayBucket),
		ThisMonthRevenue: MonthRevenue(bookings, today.Year(), today.Month()),
		LastMonthRevenue: MonthRevenue(bookings, lastMonth.Year(), lastMonth.Month()),
		PickupsToday:     CountPickups(bookings, todayBucket),
		ReturnsToday:     CountReturns(bookings, todayBucket),
		ActiveBookings:   active,
		BusyVehicles:     busyCount,
		IdleVehicles:     total - busyCount,
		TotalVehicles:    total,
		UtilizationPct:   utilization,
	}
}
