/*
Package source loads fleet snapshots from wherever raw records live.

PURPOSE:
  The engine (package fleet) is pure: it takes slices and returns values.
  This package is the impure edge that gets those slices. A Fetcher hands
  back raw records per collection; the Loader fetches all four in parallel,
  maps them through the record factory and assembles a fleet.Snapshot.

FAILURE POLICY:
  A collection that fails to load is treated as empty and logged. A record
  that fails to map is skipped and logged. Load never fails, so the caller
  always gets something to render.

IMPLEMENTATIONS:
  - HTTPClient:          upstream REST backend
  - store/sqlite.Store:  local mirror kept fresh by the sync scheduler
  - store/memory.Memory: tests and demos

SEE ALSO:
  - factory/record.go: Record -> fleet type mapping
  - api/scheduler.go: Copies HTTPClient output into the sqlite mirror
*/
package source

import (
	"context"
	"fmt"

	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/generic"
)

// Fetcher returns the raw records of each collection.
type Fetcher interface {
	FetchVehicles(ctx context.Context) ([]factory.Record, error)
	FetchBookings(ctx context.Context) ([]factory.Record, error)
	FetchMaintenance(ctx context.Context) ([]factory.Record, error)
	FetchPricingRules(ctx context.Context) ([]factory.Record, error)
}

// FetchCollection dispatches to the Fetcher method for a collection name.
func FetchCollection(ctx context.Context, f Fetcher, collection string) ([]factory.Record, error) {
	switch collection {
	case factory.CollectionVehicles:
		return f.FetchVehicles(ctx)
	case factory.CollectionBookings:
		return f.FetchBookings(ctx)
	case factory.CollectionMaintenance:
		return f.FetchMaintenance(ctx)
	case factory.CollectionPricingRules:
		return f.FetchPricingRules(ctx)
	}
	return nil, fmt.Errorf("%w: %q", generic.ErrUnknownCollection, collection)
}
