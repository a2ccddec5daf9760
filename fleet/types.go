/*
Package fleet implements the rental revenue and availability engine.

PURPOSE:
  One consolidated implementation of the logic every dashboard and calendar
  view needs: proration of booking revenue onto day/month buckets, dashboard
  counters, per-day availability classification, and the two date pickers
  that consult it.

KEY CONCEPTS IN THIS FILE (types.go):
  - BookingInterval: a rental with a normalized [start, end] and total price
  - MaintenanceEvent: a single-day maintenance slot
  - PricingRule: a date-ranged per-day price override
  - DayClassification: the derived status of one calendar day

DESIGN PRINCIPLES:
  1. Pure functions: the engine holds no state and performs no I/O
  2. Immutable inputs: slices passed in are never modified
  3. Degrade by omission: malformed records never reach the engine
  4. Precision: money is decimal.Decimal, rounded only at display time

SEE ALSO:
  - revenue.go: proration engine
  - availability.go: day classifier
  - picker.go: range and single-day pickers
*/
package fleet

import (
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type VehicleID string

// =============================================================================
// VEHICLE
// =============================================================================

// Vehicle is the minimal vehicle view the engine needs.
type Vehicle struct {
	ID          VehicleID
	Label       string
	PricePerDay decimal.Decimal
}

// =============================================================================
// BOOKING
// =============================================================================

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingActive    BookingStatus = "ACTIVE"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// DefaultBlocking are the statuses that occupy a calendar day when the
// caller does not say otherwise.
var DefaultBlocking = []BookingStatus{BookingConfirmed, BookingActive}

// DefaultCountable are the statuses that earn revenue and count on dashboards.
var DefaultCountable = []BookingStatus{BookingPending, BookingConfirmed, BookingActive, BookingCompleted}

// BookingInterval is a rental over a normalized interval.
// Interval.End >= Interval.Start always holds.
type BookingInterval struct {
	ID         string
	VehicleID  VehicleID
	Status     BookingStatus
	Interval   generic.Interval
	TotalPrice decimal.Decimal
}

// StatusSet is a set of booking statuses.
type StatusSet map[BookingStatus]bool

// NewStatusSet builds a set; an empty list falls back to def.
func NewStatusSet(statuses []BookingStatus, def []BookingStatus) StatusSet {
	if len(statuses) == 0 {
		statuses = def
	}
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

func (s StatusSet) Has(status BookingStatus) bool { return s[status] }

// =============================================================================
// MAINTENANCE
// =============================================================================

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "SCHEDULED"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceFinished   MaintenanceStatus = "FINISHED"
)

// Blocks reports whether the event keeps the vehicle off the road.
func (s MaintenanceStatus) Blocks() bool {
	return s == MaintenanceScheduled || s == MaintenanceInProgress
}

// MaintenanceEvent occupies exactly one calendar day.
type MaintenanceEvent struct {
	ID            string
	VehicleID     VehicleID
	ScheduledDate generic.Day
	Status        MaintenanceStatus
}

// =============================================================================
// PRICING RULE
// =============================================================================

// PricingRule overrides the per-day price for [EffectiveDate, ExpiryDate].
type PricingRule struct {
	ID            string
	VehicleID     VehicleID
	EffectiveDate generic.Day
	ExpiryDate    generic.Day
	PricePerDay   decimal.Decimal
}

// Covers returns true if d is inside the rule's inclusive range.
func (r PricingRule) Covers(d generic.Day) bool {
	return d.AfterOrEqual(r.EffectiveDate) && d.BeforeOrEqual(r.ExpiryDate)
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

type DayStatus string

const (
	DayPast        DayStatus = "PAST"
	DayBooked      DayStatus = "BOOKED"
	DayMaintenance DayStatus = "MAINTENANCE"
	DayPriced      DayStatus = "PRICED"
	DayAvailable   DayStatus = "AVAILABLE"
)

// DayClassification is the single derived status of one day for one vehicle.
// Price is set only for PRICED days.
type DayClassification struct {
	Date   generic.Day
	Status DayStatus
	Price  decimal.NullDecimal
}

// RevenueBucket is the revenue attributed to one day or month.
type RevenueBucket struct {
	Key     string
	Revenue decimal.Decimal
}

// =============================================================================
// SNAPSHOT - Immutable bundle of the four source collections
// =============================================================================

// Snapshot is one load of the four collections. Methods never modify it.
type Snapshot struct {
	Vehicles    []Vehicle
	Bookings    []BookingInterval
	Maintenance []MaintenanceEvent
	Rules       []PricingRule
}

// Vehicle looks up a vehicle by id.
func (s Snapshot) Vehicle(id VehicleID) (Vehicle, bool) {
	for _, v := range s.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// BookingsFor returns the vehicle's bookings in a fresh slice.
func (s Snapshot) BookingsFor(id VehicleID) []BookingInterval {
	var out []BookingInterval
	for _, b := range s.Bookings {
		if b.VehicleID == id {
			out = append(out, b)
		}
	}
	return out
}

// MaintenanceFor returns the vehicle's maintenance events in a fresh slice.
func (s Snapshot) MaintenanceFor(id VehicleID) []MaintenanceEvent {
	var out []MaintenanceEvent
	for _, m := range s.Maintenance {
		if m.VehicleID == id {
			out = append(out, m)
		}
	}
	return out
}

// RulesFor returns the vehicle's pricing rules in input order.
func (s Snapshot) RulesFor(id VehicleID) []PricingRule {
	var out []PricingRule
	for _, r := range s.Rules {
		if r.VehicleID == id {
			out = append(out, r)
		}
	}
	return out
}

// FilterBookings returns the bookings whose status is in set.
func FilterBookings(bookings []BookingInterval, set StatusSet) []BookingInterval {
	out := make([]BookingInterval, 0, len(bookings))
	for _, b := range bookings {
		if set.Has(b.Status) {
			out = append(out, b)
		}
	}
	return out
}
