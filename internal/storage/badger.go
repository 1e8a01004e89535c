// Package storage provides the Badger-based durable log store.
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/snapfold-go/internal/core/domain"
)

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory.
	Dir string

	// GCInterval is the interval between automatic value-log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// SyncWrites enables fsync after each write.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		SyncWrites:  false,
	}
}

// BadgerStore implements LogStore on Badger v3.
//
// Folder records live under `folder:<identity>`; message logs under
// `msg:<identity>:<seq>` with a big-endian 64-bit sequence number, so
// lexicographic key order is log order. Badger transactions give the
// append+bill atomicity the LogStore contract requires.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime       atomic.Int64
	gcBytesReclaimed atomic.Uint64

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens the Badger-backed log store.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	store := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go store.gcLoop()

	logger.Info("badger store started",
		"dir", cfg.Dir,
		"gc_interval", cfg.GCInterval)

	return store, nil
}

// GetFolder retrieves a folder record by identity.
func (s *BadgerStore) GetFolder(_ context.Context, identity string) (*domain.Folder, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(folderKey(identity))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return domain.UnmarshalFolder(raw)
}

// CreateFolder stores a new folder record, failing on an existing identity.
func (s *BadgerStore) CreateFolder(_ context.Context, folder *domain.Folder) error {
	if err := folder.Validate(); err != nil {
		return err
	}
	raw, err := folder.Marshal()
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}

	key := folderKey(folder.Identity)
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return domain.ErrFolderConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, raw)
	})
	if err != nil {
		if domain.IsDomainError(err, "") {
			return err
		}
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// AppendMessage writes the message and the updated record in one transaction.
//
// folder must already carry the post-append counters: the message lands at
// sequence folder.MsgCount-1.
func (s *BadgerStore) AppendMessage(_ context.Context, msg *domain.Message, folder *domain.Folder) error {
	if folder.MsgCount < 1 {
		return domain.ErrInvalidArgument.WithDetails("msg_count must include the appended message")
	}

	msgRaw, err := msg.Marshal()
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	folderRaw, err := folder.Marshal()
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}

	seq := folder.MsgCount - 1
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(msgKey(folder.Identity, seq), msgRaw); err != nil {
			return err
		}
		return txn.Set(folderKey(folder.Identity), folderRaw)
	})
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Messages returns the ordered log suffix starting at offset from.
func (s *BadgerStore) Messages(_ context.Context, identity string, from int64) ([]*domain.Message, error) {
	if from < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("offset must not be negative")
	}

	prefix := msgPrefix(identity)
	msgs := []*domain.Message{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(msgKey(identity, from)); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			msg, err := domain.UnmarshalMessage(raw)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		return nil
	})
	if err != nil {
		if domain.IsDomainError(err, "") {
			return nil, err
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return msgs, nil
}

// DeleteFolder removes the record and the whole message log. Idempotent.
func (s *BadgerStore) DeleteFolder(_ context.Context, identity string) error {
	// DropPrefix is idempotent and sidesteps transaction size limits on
	// long message logs.
	if err := s.db.DropPrefix(folderKey(identity), msgPrefix(identity)); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Folders iterates all persisted folder identities.
func (s *BadgerStore) Folders(_ context.Context, fn func(identity string) bool) error {
	prefix := []byte(folderKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			identity := strings.TrimPrefix(string(it.Item().Key()), folderKeyPrefix)
			if !fn(identity) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Close gracefully shuts down the store.
func (s *BadgerStore) Close() error {
	s.logger.Info("shutting down badger store")

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	s.logger.Info("badger store shutdown complete")
	return nil
}

// GC triggers value-log garbage collection until nothing is reclaimable.
func (s *BadgerStore) GC() error {
	start := time.Now()
	_, vlogBefore := s.db.Size()
	cycles := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		cycles++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	if cycles > 0 {
		var reclaimed int64
		if _, vlogAfter := s.db.Size(); vlogAfter < vlogBefore {
			reclaimed = vlogBefore - vlogAfter
			s.gcBytesReclaimed.Add(uint64(reclaimed))
		}
		s.logger.Info("gc completed",
			"rewrites", cycles,
			"reclaimed_bytes", reclaimed,
			"elapsed", time.Since(start))
	}
	return nil
}

// RegisterMetrics registers Badger size metrics and starts the updater.
// Call once during initialization.
func (s *BadgerStore) RegisterMetrics(registry *prometheus.Registry) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapfold",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapfold",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapfold",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	gcReclaimed := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "snapfold",
		Subsystem: "badger",
		Name:      "gc_reclaimed_bytes_total",
		Help:      "Value log bytes reclaimed by garbage collection",
	}, func() float64 {
		return float64(s.gcBytesReclaimed.Load())
	})

	registry.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		gcReclaimed,
	)

	go s.metricsUpdateLoop()

	return s
}

// metricsUpdateLoop periodically refreshes the size gauges.
func (s *BadgerStore) metricsUpdateLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lsm, vlog := s.db.Size()
			s.metricsLSMSize.Set(float64(lsm))
			s.metricsValueLogSize.Set(float64(vlog))
			if t := s.lastGCTime.Load(); t > 0 {
				s.metricsLastGCTime.Set(float64(t) / 1000.0)
			}
		case <-s.stopCh:
			return
		}
	}
}

// gcLoop runs periodic value-log garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.GC(); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// msgKey returns the log key for a sequence position.
func msgKey(identity string, seq int64) []byte {
	prefix := msgPrefix(identity)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(seq))
	return key
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
