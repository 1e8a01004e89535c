// Package storage provides the in-memory log store.
package storage

import (
	"context"
	"sync"

	"github.com/yndnr/snapfold-go/internal/core/domain"
)

// MemoryStore implements LogStore on process memory.
//
// It honors the same atomicity contract as BadgerStore under a single lock
// and is the backend of choice for tests and local experimentation. Nothing
// survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	folders map[string]*domain.Folder
	logs    map[string][]*domain.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		folders: make(map[string]*domain.Folder),
		logs:    make(map[string][]*domain.Message),
	}
}

// GetFolder retrieves a folder record by identity.
func (s *MemoryStore) GetFolder(_ context.Context, identity string) (*domain.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folders[identity]
	if !ok {
		return nil, domain.ErrFolderNotFound
	}
	return folder.Clone(), nil
}

// CreateFolder stores a new folder record, failing on an existing identity.
func (s *MemoryStore) CreateFolder(_ context.Context, folder *domain.Folder) error {
	if err := folder.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[folder.Identity]; ok {
		return domain.ErrFolderConflict
	}
	s.folders[folder.Identity] = folder.Clone()
	return nil
}

// AppendMessage appends the message and updates the record atomically.
func (s *MemoryStore) AppendMessage(_ context.Context, msg *domain.Message, folder *domain.Folder) error {
	if folder.MsgCount < 1 {
		return domain.ErrInvalidArgument.WithDetails("msg_count must include the appended message")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	s.logs[folder.Identity] = append(s.logs[folder.Identity], &cp)
	s.folders[folder.Identity] = folder.Clone()
	return nil
}

// Messages returns the ordered log suffix starting at offset from.
func (s *MemoryStore) Messages(_ context.Context, identity string, from int64) ([]*domain.Message, error) {
	if from < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("offset must not be negative")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[identity]
	if from >= int64(len(log)) {
		return []*domain.Message{}, nil
	}

	out := make([]*domain.Message, 0, int64(len(log))-from)
	for _, m := range log[from:] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// DeleteFolder removes the record and the message log. Idempotent.
func (s *MemoryStore) DeleteFolder(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.folders, identity)
	delete(s.logs, identity)
	return nil
}

// Folders iterates all stored folder identities.
func (s *MemoryStore) Folders(_ context.Context, fn func(identity string) bool) error {
	s.mu.RLock()
	identities := make([]string, 0, len(s.folders))
	for id := range s.folders {
		identities = append(identities, id)
	}
	s.mu.RUnlock()

	for _, id := range identities {
		if !fn(id) {
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
