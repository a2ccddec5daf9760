package fleet

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/generic"
)

// ReportRow is one line of the monthly export. Formatting is the exporter's job.
type ReportRow struct {
	BookingID         string
	VehicleID         VehicleID
	VehicleLabel      string
	WindowStart       generic.Day
	WindowEnd         generic.Day
	TotalPrice        decimal.Decimal
	AttributedRevenue decimal.Decimal
	OverlapDays       int
}

// MonthlyReport lists every booking overlapping the month, ordered by
// vehicle then start. Bookings outside countable are left out.
func MonthlyReport(snap Snapshot, year int, month time.Month, countable StatusSet) []ReportRow {
	bucket := generic.MonthBucket(year, month)
	labels := make(map[VehicleID]string, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		labels[v.ID] = v.Label
	}

	var rows []ReportRow
	for _, b := range FilterBookings(snap.Bookings, countable) {
		shared, ok := generic.Intersect(b.Interval, bucket)
		if !ok || generic.Overlap(b.Interval, bucket) == 0 {
			continue
		}
		rows = append(rows, ReportRow{
			BookingID:         b.ID,
			VehicleID:         b.VehicleID,
			VehicleLabel:      labels[b.VehicleID],
			WindowStart:       b.Interval.FirstDay(),
			WindowEnd:         b.Interval.LastDay(),
			TotalPrice:        b.TotalPrice,
			AttributedRevenue: Share(b, bucket),
			OverlapDays:       len(shared.Days()),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].VehicleID != rows[j].VehicleID {
			return rows[i].VehicleID < rows[j].VehicleID
		}
		return rows[i].WindowStart.Before(rows[j].WindowStart)
	})
	return rows
}
