// Package service provides the domain services for Snapfold.
//
// FolderService owns the folder business rules: signup and login against
// the durable store, quota-checked message acceptance, ordered retrieval,
// and payload encryption. Side effects are confined to LogStore calls.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/storage"
	"github.com/yndnr/snapfold-go/pkg/crypto/stream"
)

// Config holds the folder policy knobs, read once at startup.
type Config struct {
	// DefaultAge is the folder lifetime applied when signup does not
	// request one.
	DefaultAge time.Duration

	// StorageLimit is the per-folder quota in bytes.
	StorageLimit int64

	// KDFIterations is the PBKDF2 iteration count for key derivation.
	KDFIterations int

	// EncryptData enables at-rest encryption of message and file payloads.
	EncryptData bool
}

// DefaultConfig returns the default folder policy.
func DefaultConfig() Config {
	return Config{
		DefaultAge:    24 * time.Hour,
		StorageLimit:  1_000_000_000, // 1 GB
		KDFIterations: stream.DefaultIterations,
		EncryptData:   true,
	}
}

// FolderService handles folder lifecycle and message operations.
type FolderService struct {
	store storage.LogStore
	cfg   Config
}

// NewFolderService creates a FolderService on the given store.
func NewFolderService(store storage.LogStore, cfg Config) *FolderService {
	if cfg.DefaultAge <= 0 {
		cfg.DefaultAge = DefaultConfigAge
	}
	if cfg.StorageLimit <= 0 {
		cfg.StorageLimit = DefaultConfigStorageLimit
	}
	return &FolderService{store: store, cfg: cfg}
}

// Fallbacks for zero-valued Config fields.
const (
	DefaultConfigAge          = 24 * time.Hour
	DefaultConfigStorageLimit = int64(1_000_000_000)
)

// EncryptsData reports whether payload encryption is enabled.
func (s *FolderService) EncryptsData() bool {
	return s.cfg.EncryptData
}

// ============================================================================
// Signup / Login
// ============================================================================

// SignupRequest contains parameters for folder creation.
type SignupRequest struct {
	Passcode string
	// Age overrides the default folder lifetime when positive.
	Age time.Duration
}

// SignupResponse contains the result of folder creation.
type SignupResponse struct {
	Identity string
	Folder   *domain.Folder
	// Key is the derived encryption key; process-local, never persisted.
	Key []byte
}

// Signup creates a new folder for a passcode.
//
// The identity is derived from the passcode; an existing identity is a
// conflict surfaced to the caller, never overwritten.
func (s *FolderService) Signup(ctx context.Context, req *SignupRequest) (*SignupResponse, error) {
	// 1. Validate input
	if req.Passcode == "" {
		return nil, domain.ErrMissingArgument.WithDetails("passcode is required")
	}

	age := req.Age
	if age <= 0 {
		age = s.cfg.DefaultAge
	}

	// 2. Derive identity and a fresh persisted salt
	identity := domain.Fingerprint(req.Passcode)
	salt, err := stream.NewSalt(domain.SaltSize)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	// 3. Build and persist the record; set-if-absent catches races
	folder := domain.NewFolder(identity, int64(age/time.Second), s.cfg.StorageLimit, salt)
	if err := s.store.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}

	return &SignupResponse{
		Identity: identity,
		Folder:   folder,
		Key:      stream.DeriveKey(req.Passcode, salt, s.cfg.KDFIterations),
	}, nil
}

// LoginRequest contains parameters for joining an existing folder.
type LoginRequest struct {
	Passcode string
}

// LoginResponse contains the result of a successful login.
type LoginResponse struct {
	Identity string
	Folder   *domain.Folder
	Key      []byte
}

// Login resolves a passcode to its folder.
//
// An unknown or expired identity is Unauthorized, not NotFound: the caller
// learns nothing about which passcodes exist.
func (s *FolderService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	// 1. Validate input
	if req.Passcode == "" {
		return nil, domain.ErrMissingArgument.WithDetails("passcode is required")
	}

	// 2. Resolve the identity
	identity := domain.Fingerprint(req.Passcode)
	folder, err := s.store.GetFolder(ctx, identity)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrFolderNotFound.Code) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	// 3. Expiry is checked before any use of the record
	if folder.IsExpired() {
		return nil, domain.ErrUnauthorized.WithDetails("folder expired")
	}

	// 4. Derive the key from the persisted salt
	return &LoginResponse{
		Identity: identity,
		Folder:   folder,
		Key:      stream.DeriveKey(req.Passcode, folder.Salt, s.cfg.KDFIterations),
	}, nil
}

// Open loads a folder record by identity, for lazy registry population.
// No key is derived: only a login carries the passcode.
func (s *FolderService) Open(ctx context.Context, identity string) (*domain.Folder, error) {
	return s.store.GetFolder(ctx, identity)
}

// ============================================================================
// Messages
// ============================================================================

// Accept appends a message to the folder's log.
//
// The quota is enforced before any write; on a rejected or failed append the
// in-memory counters are untouched and the message must not be fanned out.
// On success folder's CurrentSize and MsgCount reflect the append.
func (s *FolderService) Accept(ctx context.Context, folder *domain.Folder, key []byte, msg *domain.Message) error {
	// 1. Quota check before anything is written
	if msg.Size+folder.CurrentSize > folder.StorageLimit {
		return domain.ErrQuotaExceeded.WithDetails(
			fmt.Sprintf("%d + %d exceeds %d bytes", msg.Size, folder.CurrentSize, folder.StorageLimit))
	}

	// 2. Encrypt the payload at rest
	stored := *msg
	if s.cfg.EncryptData {
		data, err := sealPayload(key, msg.Data)
		if err != nil {
			return err
		}
		stored.Data = data
	}

	// 3. Atomic append + quota billing on a post-append copy
	next := folder.Clone()
	next.CurrentSize += msg.Size
	next.MsgCount++
	if err := s.store.AppendMessage(ctx, &stored, next); err != nil {
		return err
	}

	// 4. Only a durable append mutates the live entity
	folder.CurrentSize = next.CurrentSize
	folder.MsgCount = next.MsgCount
	return nil
}

// Retrieve returns the message log suffix after the given offset.
//
// A negative offset is invalid input. An offset at or beyond the current
// length legally yields an empty result: stale clients of a deleted and
// recreated identity see nothing rather than an error.
func (s *FolderService) Retrieve(ctx context.Context, folder *domain.Folder, key []byte, offset int64) ([]*domain.Message, error) {
	if offset < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("offset must not be negative")
	}

	msgs, err := s.store.Messages(ctx, folder.Identity, offset)
	if err != nil {
		return nil, err
	}

	if s.cfg.EncryptData {
		for _, m := range msgs {
			data, err := openPayload(key, m.Data)
			if err != nil {
				return nil, err
			}
			m.Data = data
		}
	}
	return msgs, nil
}
