/*
Package sqlite provides a SQLite-backed mirror of the upstream records.

PURPOSE:
  Keeps a local copy of the four upstream collections so the API can serve
  calendars and dashboards while the backend is slow or down. The sync
  scheduler replaces collections wholesale; request handlers read through
  the source.Fetcher methods.

RAW PAYLOADS:
  Records are stored as the JSON the backend sent, not as mapped fleet
  types. Mapping happens on read (factory), so fixing a field-name variant
  in the factory takes effect without a resync.

KEY TABLES:
  vehicles, bookings, maintenance, pricing_rules:
    id, vehicle_id, payload_json, synced_at
  sync_runs:
    One row per collection per sync attempt (ok or error)

INDEXES:
  - idx_<collection>_vehicle: Per-vehicle lookups
  - idx_sync_runs_collection: Latest run per collection

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers are not
  blocked while a sync rewrites a collection.

USAGE:
  store, err := sqlite.New("./data/fleet.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  loader := source.NewLoader(store, logger)

SEE ALSO:
  - source/fetcher.go: Fetcher interface implemented here
  - api/scheduler.go: Writes collections via ReplaceCollection
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/generic"
)

// Store mirrors upstream collections in SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New opens (or creates) a database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := NewFromDB(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewFromDB wraps an open, already-migrated database.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var schema string
	for _, c := range factory.Collections {
		schema += fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		vehicle_id TEXT,
		payload_json TEXT NOT NULL,
		synced_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_vehicle ON %[1]s(vehicle_id);
`, c)
	}
	schema += `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		record_count INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_collection
		ON sync_runs(collection, finished_at DESC);
`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// ReplaceCollection swaps the whole collection in one transaction. Records
// without an id get a generated one so they survive the primary key.
func (s *Store) ReplaceCollection(ctx context.Context, collection string, records []factory.Record) error {
	if !known(collection) {
		return fmt.Errorf("%w: %q", generic.ErrUnknownCollection, collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+collection); err != nil {
		return fmt.Errorf("clearing %s: %w", collection, err)
	}

	syncedAt := s.now().UTC().Format(time.RFC3339)
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (id, vehicle_id, payload_json, synced_at) VALUES (?, ?, ?, ?)", collection)
	for _, r := range records {
		id := r.ID()
		if id == "" {
			id = uuid.NewString()
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding %s[%s]: %w", collection, id, err)
		}
		if _, err := tx.ExecContext(ctx, query, id, nullString(r.VehicleID()), string(payload), syncedAt); err != nil {
			return fmt.Errorf("inserting %s[%s]: %w", collection, id, err)
		}
	}

	return tx.Commit()
}

// ListCollection returns every stored record of a collection.
func (s *Store) ListCollection(ctx context.Context, collection string) ([]factory.Record, error) {
	if !known(collection) {
		return nil, fmt.Errorf("%w: %q", generic.ErrUnknownCollection, collection)
	}
	return s.queryRecords(ctx, "SELECT payload_json FROM "+collection+" ORDER BY id")
}

// ListForVehicle returns the records of a collection that belong to vehicle.
func (s *Store) ListForVehicle(ctx context.Context, collection, vehicleID string) ([]factory.Record, error) {
	if !known(collection) {
		return nil, fmt.Errorf("%w: %q", generic.ErrUnknownCollection, collection)
	}
	return s.queryRecords(ctx, "SELECT payload_json FROM "+collection+" WHERE vehicle_id = ? ORDER BY id", vehicleID)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]factory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []factory.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// FETCHER (source.Fetcher interface)
// =============================================================================

func (s *Store) FetchVehicles(ctx context.Context) ([]factory.Record, error) {
	return s.ListCollection(ctx, factory.CollectionVehicles)
}

func (s *Store) FetchBookings(ctx context.Context) ([]factory.Record, error) {
	return s.ListCollection(ctx, factory.CollectionBookings)
}

func (s *Store) FetchMaintenance(ctx context.Context) ([]factory.Record, error) {
	return s.ListCollection(ctx, factory.CollectionMaintenance)
}

func (s *Store) FetchPricingRules(ctx context.Context) ([]factory.Record, error) {
	return s.ListCollection(ctx, factory.CollectionPricingRules)
}

// =============================================================================
// SYNC RUNS
// =============================================================================

// SyncRun records one collection sync attempt.
type SyncRun struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	RecordCount int       `json:"recordCount"`
	Error       string    `json:"error,omitempty"`
}

// SaveSyncRun stores a sync attempt. An empty ID is generated.
func (s *Store) SaveSyncRun(ctx context.Context, run SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, collection, started_at, finished_at, record_count, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Collection,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.RecordCount, nullString(run.Error),
	)
	return err
}

// LatestSyncRuns returns the most recent run of each collection.
func (s *Store) LatestSyncRuns(ctx context.Context) ([]SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.collection, r.started_at, r.finished_at, r.record_count, r.error
		FROM sync_runs r
		WHERE r.finished_at = (
			SELECT MAX(finished_at) FROM sync_runs WHERE collection = r.collection
		)
		ORDER BY r.collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var started, finished string
		var errText sql.NullString
		if err := rows.Scan(&run.ID, &run.Collection, &started, &finished, &run.RecordCount, &errText); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := append([]string{"sync_runs"}, factory.Collections...)
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func known(collection string) bool {
	for _, c := range factory.Collections {
		if c == collection {
			return true
		}
	}
	return false
}

func decodeRecord(payload string) (factory.Record, error) {
	var r factory.Record
	d := json.NewDecoder(bytes.NewReader([]byte(payload)))
	d.UseNumber()
	if err := d.Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding stored record: %w", err)
	}
	return r, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
