package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/store/memory"
	"github.com/warp/fleet-engine/store/sqlite"
)

// gatedFetcher blocks FetchVehicles until release is closed.
type gatedFetcher struct {
	*memory.Memory
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFetcher) FetchVehicles(ctx context.Context) ([]factory.Record, error) {
	close(g.entered)
	<-g.release
	return g.Memory.FetchVehicles(ctx)
}

func TestSyncScheduler_FailedCollectionKeepsPreviousMirror(t *testing.T) {
	// GIVEN: A sqlite mirror already holding one maintenance record
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.ReplaceCollection(ctx, factory.CollectionMaintenance, []factory.Record{
		{"id": "old", "vehicleId": "car-1", "scheduledDate": "2025-06-01"},
	}))

	upstream := fleetRecords(t)
	upstream.Fail(factory.CollectionMaintenance, errors.New("timeout"))
	sched, err := NewSyncScheduler(upstream, store, "@every 1h", nil)
	require.NoError(t, err)

	// WHEN: Syncing while maintenance is unavailable upstream
	results, err := sched.RunNow(ctx)
	require.NoError(t, err)

	// THEN: The old maintenance record survives, the rest is refreshed
	require.Len(t, results, 4)
	assert.Equal(t, "timeout", results[2].Error)
	kept, err := store.FetchMaintenance(ctx)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "old", kept[0].ID())

	bookings, err := store.FetchBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 5)

	// AND: Every attempt was recorded
	runs, err := store.LatestSyncRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	for _, run := range runs {
		if run.Collection == factory.CollectionMaintenance {
			assert.Equal(t, "timeout", run.Error)
		} else {
			assert.Empty(t, run.Error, run.Collection)
		}
	}
}

func TestSyncScheduler_RejectsOverlappingRuns(t *testing.T) {
	gate := &gatedFetcher{Memory: fleetRecords(t), entered: make(chan struct{}), release: make(chan struct{})}
	sched, err := NewSyncScheduler(gate, memory.New(), "@every 1h", nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := sched.RunNow(context.Background())
		done <- err
	}()
	<-gate.entered

	_, err = sched.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(gate.release)
	assert.NoError(t, <-done)
}

func TestSyncScheduler_StartStop(t *testing.T) {
	sched, err := NewSyncScheduler(memory.New(), memory.New(), "*/5 * * * *", nil)
	require.NoError(t, err)

	sched.Start()
	sched.Start()
	sched.Stop()
	sched.Stop()

	_, err = NewSyncScheduler(memory.New(), memory.New(), "whenever", nil)
	assert.Error(t, err)
}
