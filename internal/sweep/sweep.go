// Package sweep implements the periodic reaper that removes expired
// folders from the registry, the log store, and the disk.
package sweep

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/filestore"
	"github.com/yndnr/snapfold-go/internal/registry"
	"github.com/yndnr/snapfold-go/internal/storage"
	"github.com/yndnr/snapfold-go/internal/telemetry/metric"
)

// DefaultInterval is the pause target between cycle starts.
const DefaultInterval = time.Minute

// State describes what the sweeper is currently doing.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateReconciling
	StateSleeping
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateReconciling:
		return "reconciling"
	case StateSleeping:
		return "sleeping"
	default:
		return "idle"
	}
}

// Sweeper walks all persisted folders on an interval and reaps the
// expired ones. A single folder failing to reap is logged and skipped;
// the cycle always visits every folder.
type Sweeper struct {
	store    storage.LogStore
	reg      *registry.Registry
	files    *filestore.Store
	metrics  *metric.Metrics
	interval time.Duration
	logger   *slog.Logger

	state atomic.Int32
}

// New creates a sweeper. A non-positive interval falls back to
// DefaultInterval.
func New(store storage.LogStore, reg *registry.Registry, files *filestore.Store, metrics *metric.Metrics, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		store:    store,
		reg:      reg,
		files:    files,
		metrics:  metrics,
		interval: interval,
		logger:   logger.With("component", "sweep"),
	}
}

// State returns the sweeper's current phase.
func (s *Sweeper) State() State {
	return State(s.state.Load())
}

// Run executes sweep cycles until ctx is cancelled. The pause after each
// cycle is the interval minus the cycle's own duration, floored at zero,
// so cycle starts stay on the interval grid under load.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweep loop started", "interval", s.interval)
	defer s.state.Store(int32(StateIdle))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep loop stopped")
			return
		case <-timer.C:
		}

		start := time.Now()
		found, deleted := s.Cycle(ctx)
		elapsed := time.Since(start)

		s.metrics.SweepCycles.Inc()
		s.metrics.SweepDuration.Observe(elapsed.Seconds())
		s.metrics.SweepLastFound.Set(float64(found))

		s.logger.Info("sweep cycle complete",
			"found", found, "deleted", deleted, "elapsed", elapsed)

		s.state.Store(int32(StateSleeping))
		timer.Reset(max(0, s.interval-elapsed))
	}
}

// Cycle runs one scan-and-reap pass and reports how many folders were
// examined and how many were deleted.
func (s *Sweeper) Cycle(ctx context.Context) (found, deleted int) {
	s.state.Store(int32(StateScanning))

	var identities []string
	err := s.store.Folders(ctx, func(identity string) bool {
		identities = append(identities, identity)
		return true
	})
	if err != nil {
		s.logger.Error("folder scan failed", "error", err)
		return 0, 0
	}
	found = len(identities)

	s.state.Store(int32(StateReconciling))
	for _, identity := range identities {
		if ctx.Err() != nil {
			return found, deleted
		}

		rec, err := s.store.GetFolder(ctx, identity)
		if err != nil {
			if !domain.IsDomainError(err, domain.ErrFolderNotFound.Code) {
				s.logger.Error("folder load failed",
					"identity", identity, "error", err)
			}
			continue
		}

		// The live entry is authoritative when one exists; its record
		// may be newer than the scanned snapshot.
		expired := rec.IsExpired()
		if entry, ok := s.reg.Peek(rec.Identity); ok {
			expired = entry.IsExpired()
		}
		if !expired {
			continue
		}

		if err := s.reap(ctx, rec); err != nil {
			s.logger.Error("folder reap failed",
				"identity", rec.Identity, "error", err)
			continue
		}
		deleted++
		s.metrics.FoldersDeleted.Inc()
	}
	return found, deleted
}

// reap removes one expired folder everywhere: connections are closed
// first so no client can observe the folder mid-deletion, then the disk
// tree is queued and the log entries dropped.
func (s *Sweeper) reap(ctx context.Context, rec *domain.Folder) error {
	if entry, ok := s.reg.Evict(rec.Identity); ok {
		entry.CloseAll(registry.ReasonDeleted)
	}

	if err := s.files.RemoveFolderAsync(rec.Path); err != nil {
		return err
	}
	if err := s.store.DeleteFolder(ctx, rec.Identity); err != nil {
		return err
	}

	s.logger.Info("expired folder deleted", "identity", rec.Identity)
	return nil
}
