package factory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/generic"
)

func decode(t *testing.T, raw string) factory.Record {
	t.Helper()
	var r factory.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

// =============================================================================
// BOOKING TESTS
// =============================================================================

func TestBooking_FieldNameVariants(t *testing.T) {
	f := factory.NewRecordFactory()
	cases := map[string]string{
		"camel":    `{"id": 1, "vehicleId": 7, "startDateTime": "2025-01-31T10:00:00", "endDateTime": "2025-02-03T09:00:00", "totalPrice": 400}`,
		"snake":    `{"id": 1, "vehicle_id": "7", "start_datetime": "2025-01-31 10:00:00", "end_datetime": "2025-02-03 09:00:00", "total_price": "400"}`,
		"lower":    `{"id": 1, "vehicle": {"id": 7}, "startDatetime": "2025-01-31", "endDatetime": "2025-02-03", "price": 400.0}`,
		"dateOnly": `{"id": 1, "vehicleId": "7", "startDate": "2025-01-31", "endDate": "2025-02-03", "price": "400.00"}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := f.Booking(decode(t, raw))
			require.NoError(t, err)

			assert.Equal(t, "1", b.ID)
			assert.Equal(t, fleet.VehicleID("7"), b.VehicleID)
			assert.Equal(t, fleet.BookingConfirmed, b.Status)
			assert.Equal(t, generic.NewDay(2025, time.January, 31), b.Interval.FirstDay())
			assert.Equal(t, generic.NewDay(2025, time.February, 3), b.Interval.LastDay())
			assert.True(t, decimal.NewFromInt(400).Equal(b.TotalPrice))
		})
	}
}

func TestBooking_MissingEndCollapsesToSingleDay(t *testing.T) {
	f := factory.NewRecordFactory()

	b, err := f.Booking(decode(t, `{"id": "b", "vehicleId": "v", "startDate": "2025-03-15", "totalPrice": 150, "status": "pending"}`))

	require.NoError(t, err)
	assert.Equal(t, b.Interval.FirstDay(), b.Interval.LastDay())
	assert.Equal(t, fleet.BookingPending, b.Status)
}

func TestBooking_InvertedBoundsReordered(t *testing.T) {
	f := factory.NewRecordFactory()

	b, err := f.Booking(decode(t, `{"vehicleId": "v", "startDate": "2025-03-20", "endDate": "2025-03-15"}`))

	require.NoError(t, err)
	assert.Equal(t, generic.NewDay(2025, time.March, 15), b.Interval.FirstDay())
	assert.Equal(t, generic.NewDay(2025, time.March, 20), b.Interval.LastDay())
	assert.True(t, b.TotalPrice.IsZero())
}

func TestBooking_EpochMillis(t *testing.T) {
	f := factory.NewRecordFactory()
	start := time.Date(2025, time.May, 2, 8, 0, 0, 0, time.Local)

	r := factory.Record{"vehicleId": "v", "startDateTime": float64(start.UnixMilli())}
	b, err := f.Booking(r)

	require.NoError(t, err)
	assert.Equal(t, generic.NewDay(2025, time.May, 2), b.Interval.FirstDay())
}

func TestBooking_Rejections(t *testing.T) {
	f := factory.NewRecordFactory()
	cases := map[string]struct {
		raw  string
		want error
	}{
		"unparseable start": {`{"id": "x", "vehicleId": "v", "startDate": "next tuesday"}`, generic.ErrUnparseableDate},
		"both unparseable":  {`{"id": "x", "vehicleId": "v", "startDate": "next tuesday", "endDate": "soon"}`, generic.ErrUnparseableDate},
		"unparseable end":   {`{"id": "x", "vehicleId": "v", "endDate": "soon"}`, generic.ErrUnparseableDate},
		"no dates":          {`{"id": "x", "vehicleId": "v", "totalPrice": 10}`, generic.ErrMissingField},
		"no vehicle":        {`{"id": "x", "startDate": "2025-01-01"}`, generic.ErrMissingField},
		"bad price":         {`{"id": "x", "vehicleId": "v", "startDate": "2025-01-01", "price": "lots"}`, generic.ErrInvalidAmount},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.Booking(decode(t, tc.raw))

			assert.ErrorIs(t, err, tc.want)
			var recErr *generic.RecordError
			require.ErrorAs(t, err, &recErr)
			assert.Equal(t, factory.CollectionBookings, recErr.Collection)
			assert.Equal(t, "x", recErr.RecordID)
			assert.True(t, generic.IsRecordError(err))
		})
	}
}

func TestBooking_OneUnparseableBoundCollapsesToSingleDay(t *testing.T) {
	f := factory.NewRecordFactory()
	cases := map[string]struct {
		raw  string
		want generic.Day
	}{
		"bad end":   {`{"id": "x", "vehicleId": "v", "startDate": "2025-03-15", "endDate": "not-a-date", "totalPrice": 150}`, generic.NewDay(2025, time.March, 15)},
		"bad start": {`{"id": "x", "vehicleId": "v", "startDate": "next tuesday", "endDate": "2025-01-01", "totalPrice": 150}`, generic.NewDay(2025, time.January, 1)},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := f.Booking(decode(t, tc.raw))

			require.NoError(t, err)
			assert.Equal(t, tc.want, b.Interval.FirstDay())
			assert.Equal(t, tc.want, b.Interval.LastDay())
			assert.True(t, decimal.NewFromInt(150).Equal(b.TotalPrice))
		})
	}
}

func TestBookings_BatchReportsDroppedBound(t *testing.T) {
	f := factory.NewRecordFactory()
	records := []factory.Record{
		decode(t, `{"id": "half", "vehicleId": "v", "startDate": "2025-03-15", "endDate": "not-a-date"}`),
	}

	bookings, errs := f.Bookings(records)

	require.Len(t, bookings, 1)
	assert.Equal(t, "half", bookings[0].ID)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], generic.ErrBoundDropped)
	assert.ErrorIs(t, errs[0], generic.ErrUnparseableDate)
	assert.True(t, generic.IsDegraded(errs[0]))
	assert.False(t, generic.IsRecordError(errs[0]))
	assert.Contains(t, errs[0].Error(), "bookings[half].end")
}

func TestBookings_BatchSkipsBadRecords(t *testing.T) {
	f := factory.NewRecordFactory()
	records := []factory.Record{
		decode(t, `{"id": "ok", "vehicleId": "v", "startDate": "2025-01-01"}`),
		decode(t, `{"id": "bad", "vehicleId": "v", "startDate": "31/01/2025"}`),
	}

	bookings, errs := f.Bookings(records)

	require.Len(t, bookings, 1)
	assert.Equal(t, "ok", bookings[0].ID)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "bookings[bad].start")
}

// =============================================================================
// MAINTENANCE TESTS
// =============================================================================

func TestMaintenance_StatusCodesAndNames(t *testing.T) {
	cases := []struct {
		raw  any
		want fleet.MaintenanceStatus
	}{
		{float64(1), fleet.MaintenanceScheduled},
		{float64(2), fleet.MaintenanceScheduled},
		{float64(3), fleet.MaintenanceInProgress},
		{float64(4), fleet.MaintenanceFinished},
		{"3", fleet.MaintenanceInProgress},
		{"SCHEDULED", fleet.MaintenanceScheduled},
		{"in_progress", fleet.MaintenanceInProgress},
		{"Finished", fleet.MaintenanceFinished},
		{nil, fleet.MaintenanceScheduled},
	}
	for _, tc := range cases {
		got, err := factory.ParseMaintenanceStatus(tc.raw)
		require.NoError(t, err, "status %v", tc.raw)
		assert.Equal(t, tc.want, got, "status %v", tc.raw)
	}

	_, err := factory.ParseMaintenanceStatus(float64(9))
	assert.ErrorIs(t, err, generic.ErrUnknownStatus)
	_, err = factory.ParseMaintenanceStatus("exploded")
	assert.ErrorIs(t, err, generic.ErrUnknownStatus)
}

func TestMaintenance_DateVariants(t *testing.T) {
	f := factory.NewRecordFactory()
	for _, raw := range []string{
		`{"id": "m", "vehicleId": "v", "scheduledDate": "2025-04-10", "status": 1}`,
		`{"id": "m", "vehicle": {"id": "v"}, "scheduled_date": "2025-04-10T08:00:00", "status": "SCHEDULED"}`,
		`{"id": "m", "vehicle_id": "v", "date": "2025-04-10", "status": 2}`,
	} {
		m, err := f.Maintenance(decode(t, raw))
		require.NoError(t, err, raw)
		assert.Equal(t, generic.NewDay(2025, time.April, 10), m.ScheduledDate)
		assert.Equal(t, fleet.VehicleID("v"), m.VehicleID)
		assert.True(t, m.Status.Blocks())
	}

	_, err := f.Maintenance(decode(t, `{"id": "m", "vehicleId": "v", "status": 1}`))
	assert.ErrorIs(t, err, generic.ErrMissingField)
}

// =============================================================================
// PRICING RULE TESTS
// =============================================================================

func TestPricingRule_Variants(t *testing.T) {
	f := factory.NewRecordFactory()

	rule, err := f.PricingRule(decode(t, `{"id": "r", "vehicleId": "v", "effective_date": "2025-05-01", "expiredDate": "2025-05-10", "pricePerDay": 500}`), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, generic.NewDay(2025, time.May, 1), rule.EffectiveDate)
	assert.Equal(t, generic.NewDay(2025, time.May, 10), rule.ExpiryDate)
	assert.True(t, decimal.NewFromInt(500).Equal(rule.PricePerDay))
}

func TestPricingRule_HolidayMultiplier(t *testing.T) {
	f := factory.NewRecordFactory()
	vehicles, errs := f.Vehicles([]factory.Record{decode(t, `{"id": "v", "brand": "Toyota", "model": "Yaris", "pricePerDay": 80}`)})
	require.Empty(t, errs)
	assert.Equal(t, "Toyota Yaris", vehicles[0].Label)

	rules, errs := f.PricingRules([]factory.Record{
		decode(t, `{"id": "r", "vehicleId": "v", "effectiveDate": "2025-12-24", "expiryDate": "2025-12-26", "holidayMultiplier": 1.5}`),
		decode(t, `{"id": "r2", "vehicleId": "v", "effectiveDate": "2025-12-24", "expiryDate": "2025-12-26"}`),
	}, vehicles)

	require.Len(t, rules, 1)
	assert.True(t, decimal.NewFromInt(120).Equal(rules[0].PricePerDay))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], generic.ErrMissingField)
}

func TestVehicle_RequiresID(t *testing.T) {
	f := factory.NewRecordFactory()

	_, err := f.Vehicle(decode(t, `{"name": "nameless"}`))
	assert.ErrorIs(t, err, generic.ErrMissingField)

	v, err := f.Vehicle(decode(t, `{"id": 12, "licensePlate": "AB-123"}`))
	require.NoError(t, err)
	assert.Equal(t, fleet.VehicleID("12"), v.ID)
	assert.Equal(t, "AB-123", v.Label)
}
