// Package memory provides an in-memory record source for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds raw records per collection. It implements source.Fetcher.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]factory.Record
	failing map[string]error
}

func New() *Memory {
	return &Memory{
		records: make(map[string][]factory.Record),
		failing: make(map[string]error),
	}
}

// Put replaces a collection. Records are copied, so later changes to the
// caller's slice or maps are not observed.
func (m *Memory) Put(collection string, records []factory.Record) error {
	if !known(collection) {
		return fmt.Errorf("%w: %q", generic.ErrUnknownCollection, collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[collection] = copyRecords(records)
	return nil
}

// ReplaceCollection matches the sqlite store's write signature.
func (m *Memory) ReplaceCollection(_ context.Context, collection string, records []factory.Record) error {
	return m.Put(collection, records)
}

// Fail makes every fetch of collection return err until cleared with nil.
func (m *Memory) Fail(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failing, collection)
		return
	}
	m.failing[collection] = err
}

func (m *Memory) FetchVehicles(ctx context.Context) ([]factory.Record, error) {
	return m.fetch(ctx, factory.CollectionVehicles)
}

func (m *Memory) FetchBookings(ctx context.Context) ([]factory.Record, error) {
	return m.fetch(ctx, factory.CollectionBookings)
}

func (m *Memory) FetchMaintenance(ctx context.Context) ([]factory.Record, error) {
	return m.fetch(ctx, factory.CollectionMaintenance)
}

func (m *Memory) FetchPricingRules(ctx context.Context) ([]factory.Record, error) {
	return m.fetch(ctx, factory.CollectionPricingRules)
}

func (m *Memory) fetch(ctx context.Context, collection string) ([]factory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failing[collection]; err != nil {
		return nil, err
	}
	return copyRecords(m.records[collection]), nil
}

func known(collection string) bool {
	for _, c := range factory.Collections {
		if c == collection {
			return true
		}
	}
	return false
}

// copyRecords copies one level deep; nested objects are shared read-only.
func copyRecords(in []factory.Record) []factory.Record {
	if in == nil {
		return nil
	}
	out := make([]factory.Record, len(in))
	for i, r := range in {
		c := make(factory.Record, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
