package source

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/generic"
)

// Loader assembles snapshots from a Fetcher.
type Loader struct {
	Fetcher Fetcher
	Factory *factory.RecordFactory
	Logger  *slog.Logger
}

func NewLoader(f Fetcher, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Fetcher: f, Factory: factory.NewRecordFactory(), Logger: logger}
}

// Load fetches every collection concurrently and maps the results.
// Failed collections come back empty; rejected records are dropped.
func (l *Loader) Load(ctx context.Context) fleet.Snapshot {
	raw := make([][]factory.Record, len(factory.Collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, collection := range factory.Collections {
		i, collection := i, collection
		g.Go(func() error {
			records, err := FetchCollection(gctx, l.Fetcher, collection)
			if err != nil {
				// Degrade instead of cancelling the siblings.
				l.Logger.Warn("collection unavailable, treating as empty",
					"collection", collection, "error", err)
				return nil
			}
			raw[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var snap fleet.Snapshot
	var errs []error

	snap.Vehicles, errs = l.Factory.Vehicles(raw[0])
	l.logRejects(factory.CollectionVehicles, errs)

	snap.Bookings, errs = l.Factory.Bookings(raw[1])
	l.logRejects(factory.CollectionBookings, errs)

	snap.Maintenance, errs = l.Factory.MaintenanceEvents(raw[2])
	l.logRejects(factory.CollectionMaintenance, errs)

	snap.Rules, errs = l.Factory.PricingRules(raw[3], snap.Vehicles)
	l.logRejects(factory.CollectionPricingRules, errs)

	l.Logger.Debug("snapshot loaded",
		"vehicles", len(snap.Vehicles),
		"bookings", len(snap.Bookings),
		"maintenance", len(snap.Maintenance),
		"rules", len(snap.Rules))
	return snap
}

func (l *Loader) logRejects(collection string, errs []error) {
	for _, err := range errs {
		if generic.IsDegraded(err) {
			l.Logger.Warn("record partially parsed", "collection", collection, "error", err)
			continue
		}
		l.Logger.Warn("skipping record", "collection", collection, "error", err)
	}
}
