/*
Package factory converts raw backend records into fleet engine types.

PURPOSE:
  The REST backend has shipped several field names for the same concept
  over time (camelCase, snake_case, nested objects). This package is the
  only place that knows about them. Everything downstream sees clean
  fleet.BookingInterval / MaintenanceEvent / PricingRule / Vehicle values.

RECORD SHAPES:
  Booking:
    start:   startDateTime | start_datetime | startDatetime | startDate
    end:     endDateTime | end_datetime | endDatetime | endDate
    price:   totalPrice | total_price | price
    vehicle: vehicleId | vehicle_id | vehicle.id

  Maintenance:
    date:    scheduledDate | scheduled_date | date
    status:  1, 2 -> SCHEDULED, 3 -> IN_PROGRESS, 4 -> FINISHED, or the enum name

  Pricing rule:
    effectiveDate | effective_date, expiryDate | expiry_date | expiredDate
    pricePerDay, else holidayMultiplier x vehicle base pricePerDay

DATES:
  RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02",
  or epoch milliseconds. No offset means local time.

FAILURES:
  A record that cannot be mapped yields a *generic.RecordError. The batch
  helpers return the good values and the errors; callers log and move on.

SEE ALSO:
  - source/loader.go: Calls the batch helpers and logs rejects
  - generic/errors.go: RecordError and sentinels
*/
package factory

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/generic"
)

// Record is one decoded JSON object from the backend.
type Record map[string]any

// Collection names, shared with the stores and the HTTP source.
const (
	CollectionVehicles     = "vehicles"
	CollectionBookings     = "bookings"
	CollectionMaintenance  = "maintenance"
	CollectionPricingRules = "pricing_rules"
)

// Collections lists every collection in load order.
var Collections = []string{CollectionVehicles, CollectionBookings, CollectionMaintenance, CollectionPricingRules}

// Field name variants, in lookup priority order.
var (
	bookingStartFields = []string{"startDateTime", "start_datetime", "startDatetime", "startDate"}
	bookingEndFields   = []string{"endDateTime", "end_datetime", "endDatetime", "endDate"}
	bookingPriceFields = []string{"totalPrice", "total_price", "price"}
	maintenanceDate    = []string{"scheduledDate", "scheduled_date", "date"}
	ruleEffective      = []string{"effectiveDate", "effective_date"}
	ruleExpiry         = []string{"expiryDate", "expiry_date", "expiredDate"}
	rulePrice          = []string{"pricePerDay", "price_per_day"}
	ruleMultiplier     = []string{"holidayMultiplier", "holiday_multiplier"}
	vehiclePrice       = []string{"pricePerDay", "price_per_day", "dailyRate"}
	vehicleLabel       = []string{"label", "name", "licensePlate", "license_plate", "plate"}
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	generic.DayKeyLayout,
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory maps records. DefaultBookingStatus applies to bookings that
// carry no status field.
type RecordFactory struct {
	DefaultBookingStatus fleet.BookingStatus
}

func NewRecordFactory() *RecordFactory {
	return &RecordFactory{DefaultBookingStatus: fleet.BookingConfirmed}
}

// Vehicle maps a vehicle record.
func (f *RecordFactory) Vehicle(r Record) (fleet.Vehicle, error) {
	id := r.ID()
	if id == "" {
		return fleet.Vehicle{}, recordErr(CollectionVehicles, r, "id", generic.ErrMissingField)
	}
	v := fleet.Vehicle{ID: fleet.VehicleID(id), Label: vehicleLabelOf(r)}
	if raw, ok := r.first(vehiclePrice); ok {
		price, err := toDecimal(raw)
		if err != nil {
			return fleet.Vehicle{}, recordErr(CollectionVehicles, r, "pricePerDay", err)
		}
		v.PricePerDay = price
	}
	return v, nil
}

// Booking maps a booking record. A missing or unparseable bound takes the
// other bound's value, collapsing to a single-day booking; the record is
// rejected only when neither bound is usable.
func (f *RecordFactory) Booking(r Record) (fleet.BookingInterval, error) {
	b, _, err := f.booking(r)
	return b, err
}

// booking also reports a bound that was dropped from a kept record.
func (f *RecordFactory) booking(r Record) (b fleet.BookingInterval, dropped, err error) {
	vehicle := r.VehicleID()
	if vehicle == "" {
		return fleet.BookingInterval{}, nil, recordErr(CollectionBookings, r, "vehicleId", generic.ErrMissingField)
	}

	start, startErr := optionalTime(r, bookingStartFields)
	end, endErr := optionalTime(r, bookingEndFields)
	switch {
	case startErr != nil && endErr != nil:
		return fleet.BookingInterval{}, nil, recordErr(CollectionBookings, r, "start", startErr)
	case startErr != nil:
		if end.IsZero() {
			return fleet.BookingInterval{}, nil, recordErr(CollectionBookings, r, "start", startErr)
		}
		dropped = recordErr(CollectionBookings, r, "start", fmt.Errorf("%w: %w", generic.ErrBoundDropped, startErr))
	case endErr != nil:
		if start.IsZero() {
			return fleet.BookingInterval{}, nil, recordErr(CollectionBookings, r, "end", endErr)
		}
		dropped = recordErr(CollectionBookings, r, "end", fmt.Errorf("%w: %w", generic.ErrBoundDropped, endErr))
	}
	interval, ok := generic.NewDayInterval(start, end)
	if !ok {
		return fleet.BookingInterval{}, nil, recordErr(CollectionBookings, r, "start", generic.ErrMissingField)
	}

	price := decimal.Zero
	if raw, ok := r.first(bookingPriceFields); ok {
		if price, err = toDecimal(raw); err != nil {
			return fleet.BookingInterval{}, nil, recordErr(CollectionBookings, r, "totalPrice", err)
		}
	}

	status := f.DefaultBookingStatus
	if s := strings.ToUpper(strings.TrimSpace(r.String("status"))); s != "" {
		status = fleet.BookingStatus(s)
	}

	return fleet.BookingInterval{
		ID:         r.ID(),
		VehicleID:  fleet.VehicleID(vehicle),
		Status:     status,
		Interval:   interval,
		TotalPrice: price,
	}, dropped, nil
}

// Maintenance maps a maintenance record.
func (f *RecordFactory) Maintenance(r Record) (fleet.MaintenanceEvent, error) {
	vehicle := r.VehicleID()
	if vehicle == "" {
		return fleet.MaintenanceEvent{}, recordErr(CollectionMaintenance, r, "vehicleId", generic.ErrMissingField)
	}
	d, err := requiredDay(r, maintenanceDate)
	if err != nil {
		return fleet.MaintenanceEvent{}, recordErr(CollectionMaintenance, r, "scheduledDate", err)
	}
	status, err := ParseMaintenanceStatus(r["status"])
	if err != nil {
		return fleet.MaintenanceEvent{}, recordErr(CollectionMaintenance, r, "status", err)
	}
	return fleet.MaintenanceEvent{
		ID:            r.ID(),
		VehicleID:     fleet.VehicleID(vehicle),
		ScheduledDate: d,
		Status:        status,
	}, nil
}

// PricingRule maps a pricing rule. basePrice is the vehicle's regular
// per-day price, used with holidayMultiplier when pricePerDay is absent.
func (f *RecordFactory) PricingRule(r Record, basePrice decimal.Decimal) (fleet.PricingRule, error) {
	vehicle := r.VehicleID()
	if vehicle == "" {
		return fleet.PricingRule{}, recordErr(CollectionPricingRules, r, "vehicleId", generic.ErrMissingField)
	}
	effective, err := requiredDay(r, ruleEffective)
	if err != nil {
		return fleet.PricingRule{}, recordErr(CollectionPricingRules, r, "effectiveDate", err)
	}
	expiry, err := requiredDay(r, ruleExpiry)
	if err != nil {
		return fleet.PricingRule{}, recordErr(CollectionPricingRules, r, "expiryDate", err)
	}
	if expiry.Before(effective) {
		effective, expiry = expiry, effective
	}

	var price decimal.Decimal
	if raw, ok := r.first(rulePrice); ok {
		if price, err = toDecimal(raw); err != nil {
			return fleet.PricingRule{}, recordErr(CollectionPricingRules, r, "pricePerDay", err)
		}
	} else if raw, ok := r.first(ruleMultiplier); ok {
		multiplier, err := toDecimal(raw)
		if err != nil {
			return fleet.PricingRule{}, recordErr(CollectionPricingRules, r, "holidayMultiplier", err)
		}
		price = basePrice.Mul(multiplier)
	} else {
		return fleet.PricingRule{}, recordErr(CollectionPricingRules, r, "pricePerDay", generic.ErrMissingField)
	}

	return fleet.PricingRule{
		ID:            r.ID(),
		VehicleID:     fleet.VehicleID(vehicle),
		EffectiveDate: effective,
		ExpiryDate:    expiry,
		PricePerDay:   price,
	}, nil
}

// =============================================================================
// BATCH HELPERS
// =============================================================================

func (f *RecordFactory) Vehicles(records []Record) ([]fleet.Vehicle, []error) {
	out := make([]fleet.Vehicle, 0, len(records))
	var errs []error
	for _, r := range records {
		v, err := f.Vehicle(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errs
}

// Bookings also reports kept records that lost a bound; those errors match
// generic.ErrBoundDropped.
func (f *RecordFactory) Bookings(records []Record) ([]fleet.BookingInterval, []error) {
	out := make([]fleet.BookingInterval, 0, len(records))
	var errs []error
	for _, r := range records {
		b, dropped, err := f.booking(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if dropped != nil {
			errs = append(errs, dropped)
		}
		out = append(out, b)
	}
	return out, errs
}

func (f *RecordFactory) MaintenanceEvents(records []Record) ([]fleet.MaintenanceEvent, []error) {
	out := make([]fleet.MaintenanceEvent, 0, len(records))
	var errs []error
	for _, r := range records {
		m, err := f.Maintenance(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, m)
	}
	return out, errs
}

// PricingRules resolves base prices from vehicles (may be nil).
func (f *RecordFactory) PricingRules(records []Record, vehicles []fleet.Vehicle) ([]fleet.PricingRule, []error) {
	base := make(map[fleet.VehicleID]decimal.Decimal, len(vehicles))
	for _, v := range vehicles {
		base[v.ID] = v.PricePerDay
	}
	out := make([]fleet.PricingRule, 0, len(records))
	var errs []error
	for _, r := range records {
		rule, err := f.PricingRule(r, base[fleet.VehicleID(r.VehicleID())])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rule)
	}
	return out, errs
}

// =============================================================================
// STATUS PARSING
// =============================================================================

// ParseMaintenanceStatus accepts the integer codes and the enum names.
func ParseMaintenanceStatus(raw any) (fleet.MaintenanceStatus, error) {
	switch v := raw.(type) {
	case nil:
		return fleet.MaintenanceScheduled, nil
	case float64:
		return maintenanceFromCode(int(v), raw)
	case int:
		return maintenanceFromCode(v, raw)
	case int64:
		return maintenanceFromCode(int(v), raw)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return "", fmt.Errorf("%w: %v", generic.ErrUnknownStatus, raw)
		}
		return maintenanceFromCode(int(n), raw)
	case string:
		s := strings.ToUpper(strings.TrimSpace(v))
		if n, err := strconv.Atoi(s); err == nil {
			return maintenanceFromCode(n, raw)
		}
		switch strings.ReplaceAll(s, " ", "_") {
		case "SCHEDULED", "PENDING":
			return fleet.MaintenanceScheduled, nil
		case "IN_PROGRESS", "INPROGRESS":
			return fleet.MaintenanceInProgress, nil
		case "FINISHED", "COMPLETED", "DONE":
			return fleet.MaintenanceFinished, nil
		}
	}
	return "", fmt.Errorf("%w: %v", generic.ErrUnknownStatus, raw)
}

func maintenanceFromCode(code int, raw any) (fleet.MaintenanceStatus, error) {
	switch code {
	case 1, 2:
		return fleet.MaintenanceScheduled, nil
	case 3:
		return fleet.MaintenanceInProgress, nil
	case 4:
		return fleet.MaintenanceFinished, nil
	}
	return "", fmt.Errorf("%w: %v", generic.ErrUnknownStatus, raw)
}

// =============================================================================
// VALUE PARSING
// =============================================================================

// ParseTime parses any accepted date representation.
func ParseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			break
		}
		return time.UnixMilli(int64(v)).In(time.Local), nil
	case int64:
		return time.UnixMilli(v).In(time.Local), nil
	case json.Number:
		n, err := v.Int64()
		if err == nil {
			return time.UnixMilli(n).In(time.Local), nil
		}
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %v", generic.ErrUnparseableDate, raw)
}

// optionalTime returns the zero time when no variant is present.
func optionalTime(r Record, fields []string) (time.Time, error) {
	raw, ok := r.first(fields)
	if !ok {
		return time.Time{}, nil
	}
	return ParseTime(raw)
}

func requiredDay(r Record, fields []string) (generic.Day, error) {
	raw, ok := r.first(fields)
	if !ok {
		return generic.Day{}, generic.ErrMissingField
	}
	t, err := ParseTime(raw)
	if err != nil {
		return generic.Day{}, err
	}
	return generic.DayOf(t), nil
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			break
		}
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d, nil
		}
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err == nil {
			return d, nil
		}
	case decimal.Decimal:
		return v, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %v", generic.ErrInvalidAmount, raw)
}

func vehicleLabelOf(r Record) string {
	if raw, ok := r.first(vehicleLabel); ok {
		if s := stringOf(raw); s != "" {
			return s
		}
	}
	label := strings.TrimSpace(r.String("brand") + " " + r.String("model"))
	if label == "" {
		return r.ID()
	}
	return label
}

// =============================================================================
// RECORD ACCESSORS
// =============================================================================

// first returns the first present, non-null, non-empty variant.
func (r Record) first(fields []string) (any, bool) {
	for _, f := range fields {
		v, ok := r[f]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String returns a field rendered as a string ("" when absent).
func (r Record) String(field string) string {
	return stringOf(r[field])
}

// ID returns the record id, numeric ids included.
func (r Record) ID() string { return r.String("id") }

// VehicleID resolves vehicleId, vehicle_id or a nested vehicle.id.
func (r Record) VehicleID() string {
	for _, f := range []string{"vehicleId", "vehicle_id"} {
		if s := r.String(f); s != "" {
			return s
		}
	}
	if nested, ok := r["vehicle"].(map[string]any); ok {
		return Record(nested).ID()
	}
	return ""
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func recordErr(collection string, r Record, field string, err error) error {
	return &generic.RecordError{Collection: collection, RecordID: r.ID(), Field: field, Err: err}
}
