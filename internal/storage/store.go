// Package storage provides the durable log store for Snapfold.
//
// Per folder it holds one metadata record and an append-only message log.
// The store's transactional append is the only synchronization primitive
// the core needs across process restarts: a message can never be appended
// without its size being billed, or billed without being appended.
package storage

import (
	"context"

	"github.com/yndnr/snapfold-go/internal/core/domain"
)

// LogStore is the durable key-value surface the core requires.
//
// Implementations must make CreateFolder an atomic set-if-absent and
// AppendMessage an all-or-nothing unit. DeleteFolder must be idempotent:
// deleting an absent folder is not an error, so the sweep can be re-run
// after a crash between steps.
type LogStore interface {
	// GetFolder retrieves a folder record by identity.
	// Returns domain.ErrFolderNotFound when absent.
	GetFolder(ctx context.Context, identity string) (*domain.Folder, error)

	// CreateFolder stores a new folder record.
	// Returns domain.ErrFolderConflict if the identity already exists.
	CreateFolder(ctx context.Context, folder *domain.Folder) error

	// AppendMessage appends msg at the log position folder.MsgCount-1 and
	// persists the updated record, as one atomic unit.
	AppendMessage(ctx context.Context, msg *domain.Message, folder *domain.Folder) error

	// Messages returns the ordered log suffix starting at offset from.
	// An offset at or past the log length yields an empty slice.
	Messages(ctx context.Context, identity string, from int64) ([]*domain.Message, error)

	// DeleteFolder removes the folder record and its whole message log.
	DeleteFolder(ctx context.Context, identity string) error

	// Folders iterates all persisted folder identities. The callback
	// returns false to stop iteration.
	Folders(ctx context.Context, fn func(identity string) bool) error

	// Close gracefully shuts down the store.
	Close() error
}

// Key prefixes of the durable layout.
const (
	folderKeyPrefix = "folder:"
	msgKeyPrefix    = "msg:"
)

// folderKey returns the metadata key for an identity.
func folderKey(identity string) []byte {
	return []byte(folderKeyPrefix + identity)
}

// msgPrefix returns the message-log key prefix for an identity.
func msgPrefix(identity string) []byte {
	return []byte(msgKeyPrefix + identity + ":")
}
