// Package filestore persists uploaded file payloads on the local
// filesystem, one directory per folder, with optional stream encryption
// and a bounded worker pool for deferred deletion.
package filestore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/pkg/crypto/stream"
)

// ================================================================
// Configuration
// ================================================================

const (
	// DefaultChunkSize is the transfer buffer used for reads and writes.
	DefaultChunkSize = 1 << 20

	// DefaultWorkers is the size of the deletion worker pool.
	DefaultWorkers = 4

	// defaultQueueDepth bounds pending deletion jobs before enqueue blocks.
	defaultQueueDepth = 64
)

// Config controls the file store.
type Config struct {
	// Root is the directory all folder subtrees live under.
	Root string

	// ChunkSize is the transfer buffer size in bytes.
	ChunkSize int

	// Workers is the number of deletion workers.
	Workers int
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig(root string) Config {
	return Config{
		Root:      root,
		ChunkSize: DefaultChunkSize,
		Workers:   DefaultWorkers,
	}
}

// ================================================================
// Store
// ================================================================

// Store owns the upload root. File payloads are addressed by the folder's
// relative path plus the file id; display names never touch the disk.
type Store struct {
	root      string
	chunkSize int
	logger    *slog.Logger

	jobs      chan string
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStore creates the upload root if needed and starts the deletion
// workers.
func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, domain.ErrStorageError.
			WithDetails("cannot create upload root").WithCause(err)
	}

	s := &Store{
		root:      root,
		chunkSize: cfg.ChunkSize,
		logger:    logger.With("component", "filestore"),
		jobs:      make(chan string, defaultQueueDepth),
	}

	s.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go s.deleteWorker()
	}
	return s, nil
}

// Root returns the absolute upload root.
func (s *Store) Root() string {
	return s.root
}

// EnsureFolder creates the directory tree for a folder's relative path.
// Called once at signup.
func (s *Store) EnsureFolder(folderPath string) error {
	dir, err := s.folderDir(folderPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return domain.ErrStorageError.
			WithDetails("cannot create folder directory").WithCause(err)
	}
	return nil
}

// Save streams r into the folder's directory under fileID, encrypting with
// key when one is given. A partially written file is removed before Save
// returns an error, so failed uploads leave no artifact behind.
//
// Returns the number of plaintext bytes consumed from r.
func (s *Store) Save(ctx context.Context, folderPath, fileID string, r io.Reader, key []byte) (int64, error) {
	path, err := s.filePath(folderPath, fileID)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, domain.ErrStorageError.
			WithDetails("cannot create file").WithCause(err)
	}

	written, err := s.copyChunks(ctx, f, r, key)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = domain.ErrStorageError.WithCause(cerr)
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Warn("cannot remove partial file",
				"path", path, "error", rmErr)
		}
		return written, err
	}
	return written, nil
}

func (s *Store) copyChunks(ctx context.Context, f *os.File, r io.Reader, key []byte) (int64, error) {
	var w io.Writer = f
	if len(key) > 0 {
		ew, err := stream.NewWriter(f, key)
		if err != nil {
			return 0, domain.ErrInternalServer.WithCause(err)
		}
		w = ew
	}

	var written int64
	buf := make([]byte, s.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return written, domain.ErrUploadInterrupted.WithCause(err)
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, domain.ErrStorageError.
					WithDetails("write failed").WithCause(werr)
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, domain.ErrUploadInterrupted.WithCause(rerr)
		}
	}
}

// Open returns a reader over the stored payload and the plaintext size.
// When key is given the reader decrypts transparently.
func (s *Store) Open(folderPath, fileID string, key []byte) (io.ReadCloser, int64, error) {
	path, err := s.filePath(folderPath, fileID)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, domain.ErrFileNotFound
		}
		return nil, 0, domain.ErrStorageError.WithCause(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, domain.ErrStorageError.WithCause(err)
	}

	size := info.Size()
	if len(key) == 0 {
		return f, size, nil
	}

	dr, err := stream.NewReader(f, key)
	if err != nil {
		f.Close()
		return nil, 0, domain.ErrStorageError.
			WithDetails("corrupt file header").WithCause(err)
	}
	return &decryptReader{Reader: dr, closer: f}, size - stream.NonceSize, nil
}

// Remove deletes a single stored file. Missing files are not an error.
func (s *Store) Remove(folderPath, fileID string) error {
	path, err := s.filePath(folderPath, fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// RemoveFolderAsync queues the folder's whole directory tree for deletion
// on the worker pool. Blocks only when the queue is full.
func (s *Store) RemoveFolderAsync(folderPath string) error {
	dir, err := s.folderDir(folderPath)
	if err != nil {
		return err
	}
	s.jobs <- dir
	return nil
}

// Close drains the deletion queue and stops the workers.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.jobs)
	})
	s.wg.Wait()
	return nil
}

func (s *Store) deleteWorker() {
	defer s.wg.Done()
	for dir := range s.jobs {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Error("folder directory deletion failed",
				"dir", dir, "error", err)
			continue
		}
		s.logger.Debug("folder directory deleted", "dir", dir)
	}
}

// ================================================================
// Path resolution
// ================================================================

// folderDir resolves a folder's relative path under the root, rejecting
// anything that would escape it.
func (s *Store) folderDir(folderPath string) (string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(folderPath))
	if !within(s.root, dir) {
		return "", domain.ErrBadRequest.WithDetails("invalid folder path")
	}
	return dir, nil
}

func (s *Store) filePath(folderPath, fileID string) (string, error) {
	if fileID == "" || fileID == "." || fileID == ".." || fileID != filepath.Base(fileID) {
		return "", domain.ErrBadRequest.WithDetails("invalid file id")
	}
	dir, err := s.folderDir(folderPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileID), nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && filepath.IsLocal(rel)
}

type decryptReader struct {
	*stream.Reader
	closer io.Closer
}

func (r *decryptReader) Close() error {
	return r.closer.Close()
}
