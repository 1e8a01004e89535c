package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/core/service"
)

// Folder is a live registry entry: the folder record, the encryption key of
// the current login session, and the set of attached connections.
//
// All mutation flows through the entry mutex. Publish holds it across the
// append and the fanout, so every connection observes messages in accept
// order.
type Folder struct {
	mu    sync.Mutex
	rec   *domain.Folder
	key   []byte
	conns map[Conn]struct{}

	logger *slog.Logger
}

func newFolder(rec *domain.Folder, logger *slog.Logger) *Folder {
	return &Folder{
		rec:    rec,
		conns:  make(map[Conn]struct{}),
		logger: logger,
	}
}

// Identity returns the folder identity.
func (f *Folder) Identity() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Identity
}

// Record returns a snapshot of the folder record.
func (f *Folder) Record() *domain.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Clone()
}

// View returns the client-facing summary of the folder.
func (f *Folder) View() domain.FolderView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.View()
}

// IsExpired reports whether the folder's age has elapsed.
func (f *Folder) IsExpired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.IsExpired()
}

// Remaining returns the unused portion of the storage quota in bytes.
func (f *Folder) Remaining() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Remaining()
}

// Path returns the relative disk path of the folder.
func (f *Folder) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Path
}

// SetKey installs the derived encryption key after a successful login or
// signup. It replaces any key from an earlier session.
func (f *Folder) SetKey(key []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
}

// Key returns a copy of the session encryption key, or nil when no login
// has installed one.
func (f *Folder) Key() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.key) == 0 {
		return nil
	}
	key := make([]byte, len(f.key))
	copy(key, f.key)
	return key
}

// HasKey reports whether a login session has installed an encryption key.
func (f *Folder) HasKey() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.key) > 0
}

// Attach adds a connection to the fanout set.
func (f *Folder) Attach(c Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[c] = struct{}{}
}

// Detach removes a connection from the fanout set.
func (f *Folder) Detach(c Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, c)
}

// ConnCount returns the number of attached connections.
func (f *Folder) ConnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Publish appends a message through the service and broadcasts it to every
// attached connection. The append and the fanout happen under the entry
// mutex, so concurrent publishers cannot interleave their broadcasts.
func (f *Folder) Publish(ctx context.Context, svc *service.FolderService, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := svc.Accept(ctx, f.rec, f.key, msg); err != nil {
		return err
	}

	// Fan out the plaintext message; encryption is an at-rest concern.
	f.broadcastLocked(Event{
		Action: "send",
		Msgs:   []domain.MessageView{msg.View()},
	})
	return nil
}

// Retrieve returns decrypted messages starting at offset, oldest first.
func (f *Folder) Retrieve(ctx context.Context, svc *service.FolderService, offset int64) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return svc.Retrieve(ctx, f.rec, f.key, offset)
}

// Broadcast delivers an event to every attached connection. Connections
// that are already closed, or that fail the send, are dropped from the set.
func (f *Folder) Broadcast(event Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcastLocked(event)
}

func (f *Folder) broadcastLocked(event Event) {
	for c := range f.conns {
		if c.IsClosed() {
			delete(f.conns, c)
			continue
		}
		if err := c.Send(event); err != nil {
			f.logger.Warn("dropping connection after failed send",
				"identity", f.rec.Identity, "error", err)
			_ = c.Close(ReasonShutdown)
			delete(f.conns, c)
		}
	}
}

// CloseAll closes every attached connection with the given reason and
// empties the fanout set.
func (f *Folder) CloseAll(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.conns {
		_ = c.Close(reason)
		delete(f.conns, c)
	}
}
