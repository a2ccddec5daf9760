package source_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/generic"
	"github.com/warp/fleet-engine/source"
	"github.com/warp/fleet-engine/store/memory"
)

func seeded(t *testing.T) *memory.Memory {
	t.Helper()
	m := memory.New()
	require.NoError(t, m.Put(factory.CollectionVehicles, []factory.Record{
		{"id": "car-1", "label": "Corolla", "pricePerDay": 80.0},
		{"id": "car-2", "label": "Golf"},
	}))
	require.NoError(t, m.Put(factory.CollectionBookings, []factory.Record{
		{"id": "b1", "vehicleId": "car-1", "startDate": "2025-01-31", "endDate": "2025-02-03", "totalPrice": 400.0},
		{"id": "b2", "vehicleId": "car-2", "startDate": "not a date"},
	}))
	require.NoError(t, m.Put(factory.CollectionMaintenance, []factory.Record{
		{"id": "m1", "vehicleId": "car-2", "scheduledDate": "2025-02-10", "status": 1.0},
	}))
	require.NoError(t, m.Put(factory.CollectionPricingRules, []factory.Record{
		{"id": "r1", "vehicleId": "car-1", "effectiveDate": "2025-12-24", "expiryDate": "2025-12-26", "holidayMultiplier": 2.0},
	}))
	return m
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestLoader_BuildsSnapshotAndSkipsBadRecords(t *testing.T) {
	logger, logs := bufferLogger()
	l := source.NewLoader(seeded(t), logger)

	snap := l.Load(context.Background())

	assert.Len(t, snap.Vehicles, 2)
	require.Len(t, snap.Bookings, 1)
	assert.Equal(t, "b1", snap.Bookings[0].ID)
	assert.Len(t, snap.Maintenance, 1)
	require.Len(t, snap.Rules, 1)
	assert.Equal(t, "160", snap.Rules[0].PricePerDay.String())

	assert.Contains(t, logs.String(), "skipping record")
	assert.Contains(t, logs.String(), "bookings[b2].start")
}

func TestLoader_KeepsBookingWithOneUnparseableBound(t *testing.T) {
	// GIVEN: A booking whose end date is garbage
	m := seeded(t)
	require.NoError(t, m.Put(factory.CollectionBookings, []factory.Record{
		{"id": "b3", "vehicleId": "car-1", "startDate": "2025-03-15", "endDate": "not-a-date", "totalPrice": 150.0},
	}))
	logger, logs := bufferLogger()

	// WHEN: Loading
	snap := source.NewLoader(m, logger).Load(context.Background())

	// THEN: It is kept as a single-day booking and the dropped bound is logged
	require.Len(t, snap.Bookings, 1)
	d := generic.NewDay(2025, time.March, 15)
	assert.Equal(t, d, snap.Bookings[0].Interval.FirstDay())
	assert.Equal(t, d, snap.Bookings[0].Interval.LastDay())
	assert.InDelta(t, 150, fleet.DayRevenue(snap.Bookings, d).InexactFloat64(), 1e-9)

	assert.Contains(t, logs.String(), "record partially parsed")
	assert.Contains(t, logs.String(), "bookings[b3].end")
	assert.NotContains(t, logs.String(), "skipping record")
}

func TestLoader_FailedCollectionDegradesToEmpty(t *testing.T) {
	// GIVEN: The maintenance endpoint is down
	m := seeded(t)
	m.Fail(factory.CollectionMaintenance, errors.New("503"))
	logger, logs := bufferLogger()

	// WHEN: Loading
	snap := source.NewLoader(m, logger).Load(context.Background())

	// THEN: Everything else is still there, maintenance is empty
	assert.Empty(t, snap.Maintenance)
	assert.Len(t, snap.Bookings, 1)
	assert.Contains(t, logs.String(), "collection unavailable")

	// AND: Classification simply shows no maintenance days
	c := fleet.Classifier{Today: generic.NewDay(2025, time.February, 1)}
	cal := c.ClassifySnapshot("car-2", generic.NewDay(2025, time.February, 10), generic.NewDay(2025, time.February, 10), snap)
	dc, ok := cal.Get(generic.NewDay(2025, time.February, 10))
	require.True(t, ok)
	assert.Equal(t, fleet.DayAvailable, dc.Status)
}

func TestLoader_EverythingDown(t *testing.T) {
	m := memory.New()
	for _, c := range factory.Collections {
		m.Fail(c, errors.New("down"))
	}

	snap := source.NewLoader(m, nil).Load(context.Background())

	assert.Empty(t, snap.Vehicles)
	assert.Empty(t, snap.Bookings)
	assert.Empty(t, snap.Maintenance)
	assert.Empty(t, snap.Rules)
}

func TestFetchCollection_Unknown(t *testing.T) {
	_, err := source.FetchCollection(context.Background(), memory.New(), "invoices")

	assert.ErrorIs(t, err, generic.ErrUnknownCollection)
}
