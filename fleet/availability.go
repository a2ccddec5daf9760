package fleet

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/generic"
)

// =============================================================================
// CALENDAR - Per-day classification for one vehicle
// =============================================================================

// Calendar maps day keys to classifications.
type Calendar map[string]DayClassification

// Get returns the classification of d; ok is false outside the window.
func (c Calendar) Get(d generic.Day) (DayClassification, bool) {
	dc, ok := c[d.Key()]
	return dc, ok
}

// Sorted returns the classifications in date order.
func (c Calendar) Sorted() []DayClassification {
	out := make([]DayClassification, 0, len(c))
	for _, dc := range c {
		out = append(out, dc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// IsSelectable is true for days a booking may cover.
func IsSelectable(dc DayClassification) bool {
	return dc.Status == DayAvailable || dc.Status == DayPriced
}

// IsSchedulable is true for days a maintenance slot may take.
// Pricing overrides are irrelevant to maintenance.
func IsSchedulable(dc DayClassification) bool {
	switch dc.Status {
	case DayPast, DayBooked, DayMaintenance:
		return false
	}
	return dc.Status != ""
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier classifies days relative to Today. Blocking lists the booking
// statuses that occupy a day; empty means DefaultBlocking.
type Classifier struct {
	Today    generic.Day
	Blocking []BookingStatus
}

// ClassifyRange produces one classification per day in [from, to] for
// vehicle. Records for other vehicles are ignored. Per day, first match wins:
//
//  1. PAST        - day precedes Today
//  2. BOOKED      - covered by a blocking booking
//  3. MAINTENANCE - SCHEDULED or IN_PROGRESS maintenance on that day
//  4. PRICED      - inside a pricing rule (first rule in input order)
//  5. AVAILABLE
func (c Classifier) ClassifyRange(
	vehicle VehicleID,
	from, to generic.Day,
	bookings []BookingInterval,
	maintenance []MaintenanceEvent,
	rules []PricingRule,
) Calendar {
	cal := make(Calendar)
	if to.Before(from) {
		return cal
	}

	booked := bookedDays(vehicle, bookings, NewStatusSet(c.Blocking, DefaultBlocking))
	blocked := maintenanceDays(vehicle, maintenance)

	var vehicleRules []PricingRule
	for _, r := range rules {
		if r.VehicleID == vehicle {
			vehicleRules = append(vehicleRules, r)
		}
	}

	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		cal[d.Key()] = classifyDay(d, c.Today, booked, blocked, vehicleRules)
	}
	return cal
}

// ClassifySnapshot is ClassifyRange over the vehicle's slice of a snapshot.
func (c Classifier) ClassifySnapshot(vehicle VehicleID, from, to generic.Day, snap Snapshot) Calendar {
	return c.ClassifyRange(vehicle, from, to, snap.BookingsFor(vehicle), snap.MaintenanceFor(vehicle), snap.RulesFor(vehicle))
}

func classifyDay(d, today generic.Day, booked, blocked map[string]bool, rules []PricingRule) DayClassification {
	key := d.Key()
	switch {
	case d.Before(today):
		return DayClassification{Date: d, Status: DayPast}
	case booked[key]:
		return DayClassification{Date: d, Status: DayBooked}
	case blocked[key]:
		return DayClassification{Date: d, Status: DayMaintenance}
	}
	for _, r := range rules {
		if r.Covers(d) {
			return DayClassification{
				Date:   d,
				Status: DayPriced,
				Price:  decimal.NewNullDecimal(r.PricePerDay),
			}
		}
	}
	return DayClassification{Date: d, Status: DayAvailable}
}

// bookedDays expands every blocking booking of vehicle day by day.
func bookedDays(vehicle VehicleID, bookings []BookingInterval, blocking StatusSet) map[string]bool {
	days := make(map[string]bool)
	for _, b := range bookings {
		if b.VehicleID != vehicle || !blocking.Has(b.Status) {
			continue
		}
		for _, d := range b.Interval.Days() {
			days[d.Key()] = true
		}
	}
	return days
}

func maintenanceDays(vehicle VehicleID, events []MaintenanceEvent) map[string]bool {
	days := make(map[string]bool)
	for _, m := range events {
		if m.VehicleID == vehicle && m.Status.Blocks() {
			days[m.ScheduledDate.Key()] = true
		}
	}
	return days
}
