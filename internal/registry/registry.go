package registry

import (
	"context"
	"log/slog"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/storage"
	"github.com/yndnr/snapfold-go/pkg/cmap"
)

// Registry is the authoritative cache of live folders, keyed by identity.
// At most one Folder entry exists per identity at any time; concurrent
// loads race on an atomic insert and the loser's entry is discarded.
type Registry struct {
	folders *cmap.Map[string, *Folder]
	store   storage.LogStore
	logger  *slog.Logger
}

// NewRegistry creates an empty registry backed by the given store.
func NewRegistry(store storage.LogStore, logger *slog.Logger) *Registry {
	return &Registry{
		folders: cmap.New[string, *Folder](),
		store:   store,
		logger:  logger.With("component", "registry"),
	}
}

// GetOrLoad returns the live entry for identity, loading the record from
// the store when the entry is not cached yet. The load happens outside any
// shard lock; the insert is atomic, so a racing load keeps only one entry.
//
// Returns domain.ErrFolderNotFound when no record exists.
func (r *Registry) GetOrLoad(ctx context.Context, identity string) (*Folder, error) {
	if f, ok := r.folders.Get(identity); ok {
		return f, nil
	}

	rec, err := r.store.GetFolder(ctx, identity)
	if err != nil {
		return nil, err
	}

	f, loaded := r.folders.GetOrSet(identity, newFolder(rec, r.logger))
	if !loaded {
		r.logger.Debug("folder loaded into registry", "identity", identity)
	}
	return f, nil
}

// Admit installs a freshly created or authenticated folder with its session
// key. It reuses the live entry when one exists so attached connections
// survive a re-login.
func (r *Registry) Admit(rec *domain.Folder, key []byte) *Folder {
	f, _ := r.folders.GetOrSet(rec.Identity, newFolder(rec, r.logger))
	f.SetKey(key)
	return f
}

// Peek returns the cached entry without touching the store.
func (r *Registry) Peek(identity string) (*Folder, bool) {
	return r.folders.Get(identity)
}

// Evict removes and returns the cached entry, if any. Attached connections
// are left to the caller to close.
func (r *Registry) Evict(identity string) (*Folder, bool) {
	return r.folders.Pop(identity)
}

// Count returns the number of live entries.
func (r *Registry) Count() int {
	return r.folders.Count()
}

// Shutdown closes every connection of every live entry and clears the
// registry. Used during server teardown.
func (r *Registry) Shutdown() {
	r.folders.Range(func(identity string, f *Folder) bool {
		f.CloseAll(ReasonShutdown)
		return true
	})
	r.folders.Clear()
	r.logger.Info("registry cleared")
}
