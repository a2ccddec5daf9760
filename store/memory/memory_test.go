package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/generic"
	"github.com/warp/fleet-engine/store/memory"
)

func TestMemory_PutCopiesRecords(t *testing.T) {
	// GIVEN: A caller-owned slice stored in memory
	m := memory.New()
	records := []factory.Record{{"id": "v1", "label": "Original"}}
	require.NoError(t, m.Put(factory.CollectionVehicles, records))

	// WHEN: The caller mutates its slice afterwards
	records[0]["label"] = "Mutated"

	// THEN: The stored copy is unchanged, and so are fetched copies
	got, err := m.FetchVehicles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Original", got[0]["label"])

	got[0]["label"] = "Also mutated"
	again, _ := m.FetchVehicles(context.Background())
	assert.Equal(t, "Original", again[0]["label"])
}

func TestMemory_FailureInjection(t *testing.T) {
	m := memory.New()
	require.NoError(t, m.Put(factory.CollectionBookings, []factory.Record{{"id": "b"}}))
	boom := errors.New("backend down")

	m.Fail(factory.CollectionBookings, boom)
	_, err := m.FetchBookings(context.Background())
	assert.ErrorIs(t, err, boom)

	m.Fail(factory.CollectionBookings, nil)
	got, err := m.FetchBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemory_UnknownCollection(t *testing.T) {
	m := memory.New()

	err := m.Put("invoices", nil)

	assert.ErrorIs(t, err, generic.ErrUnknownCollection)
}

func TestMemory_CancelledContext(t *testing.T) {
	m := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.FetchMaintenance(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
