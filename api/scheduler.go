/*
scheduler.go - Upstream sync scheduler

PURPOSE:
  Periodically pulls the four collections from the upstream backend and
  replaces the local mirror, so request handlers never wait on upstream.

DESIGN:
  - robfig/cron drives the schedule (any standard spec or "@every 5m")
  - One run at a time; a trigger during a run is rejected
  - Collections are independent: a failed fetch keeps the previous mirror
    contents for that collection and the others still sync
  - Each collection attempt is recorded when the mirror supports it

USAGE:
  scheduler, err := NewSyncScheduler(upstream, store, "@every 5m", logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSync endpoint (manual sync)
  - store/sqlite/sqlite.go: ReplaceCollection, SaveSyncRun
*/
package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/source"
	"github.com/warp/fleet-engine/store/sqlite"
)

// ErrSyncInProgress is returned by RunNow while another run is active.
var ErrSyncInProgress = errors.New("sync already in progress")

// Mirror is the local copy the scheduler writes to.
type Mirror interface {
	ReplaceCollection(ctx context.Context, collection string, records []factory.Record) error
}

// runRecorder is implemented by mirrors that keep a sync history.
type runRecorder interface {
	SaveSyncRun(ctx context.Context, run sqlite.SyncRun) error
}

// SyncResult is the outcome of one collection in one run.
type SyncResult struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	Error      string `json:"error,omitempty"`
}

// SyncScheduler copies upstream collections into the mirror.
type SyncScheduler struct {
	Upstream source.Fetcher
	Mirror   Mirror
	Logger   *slog.Logger
	Timeout  time.Duration // per run

	cron    *cron.Cron
	running sync.Mutex
	mu      sync.Mutex
	started bool
}

// NewSyncScheduler registers the sync job on schedule.
func NewSyncScheduler(upstream source.Fetcher, mirror Mirror, schedule string, logger *slog.Logger) (*SyncScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SyncScheduler{
		Upstream: upstream,
		Mirror:   mirror,
		Logger:   logger,
		Timeout:  2 * time.Minute,
		cron:     cron.New(cron.WithLocation(time.Local)),
	}
	if _, err := s.cron.AddFunc(schedule, s.scheduledRun); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the cron loop.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	s.Logger.Info("sync scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the cron loop and waits for a running sync to finish.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.Logger.Info("sync scheduler stopped")
}

func (s *SyncScheduler) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	if _, err := s.RunNow(ctx); err != nil {
		s.Logger.Warn("scheduled sync skipped", "error", err)
	}
}

// RunNow syncs every collection once.
func (s *SyncScheduler) RunNow(ctx context.Context) ([]SyncResult, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	results := make([]SyncResult, 0, len(factory.Collections))
	for _, collection := range factory.Collections {
		results = append(results, s.syncCollection(ctx, collection))
	}
	return results, nil
}

func (s *SyncScheduler) syncCollection(ctx context.Context, collection string) SyncResult {
	started := time.Now()
	result := SyncResult{Collection: collection}

	records, err := source.FetchCollection(ctx, s.Upstream, collection)
	if err == nil {
		err = s.Mirror.ReplaceCollection(ctx, collection, records)
	}
	if err != nil {
		result.Error = err.Error()
		s.Logger.Warn("sync failed, keeping previous mirror", "collection", collection, "error", err)
	} else {
		result.Records = len(records)
		s.Logger.Info("collection synced", "collection", collection, "records", len(records))
	}

	if rec, ok := s.Mirror.(runRecorder); ok {
		run := sqlite.SyncRun{
			Collection:  collection,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			RecordCount: result.Records,
			Error:       result.Error,
		}
		if err := rec.SaveSyncRun(ctx, run); err != nil {
			s.Logger.Error("failed to record sync run", "collection", collection, "error", err)
		}
	}
	return result
}
