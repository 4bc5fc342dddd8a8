package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/ryhazerus/anystore"
	"go.uber.org/zap"
)

const (
	fsBackend = "fs"

	// tempPrefix marks files being written. They are never listed and no
	// segment may start with it.
	tempPrefix = ".anystore-tmp-"
)

// Compile-time interface check.
var _ anystore.Store = (*FileStore)(nil)

// FileStore is a Store backed by a directory tree. Address segments map to
// nested directory names and a value is the content of the regular file at
// the resulting path.
//
// Operations on the same path are serialized by a per-path read/write lock
// held for the duration of one operation. Writes go to a temporary file
// that is renamed into place, so readers never observe a partial value.
// An address cannot hold a value and children at the same time, since a
// path is either a file or a directory.
type FileStore struct {
	root   string
	locks  *xsync.MapOf[string, *pathLock]
	logger *zap.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger used for diagnostics.
func WithFileLogger(l *zap.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = l
	}
}

// NewFileStore creates a FileStore rooted at dir, creating dir if needed.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("anystore/store: create root: %w", err)
	}
	s := &FileStore{
		root:   dir,
		locks:  xsync.NewMapOf[string, *pathLock](),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With(zap.String("store", fsBackend), zap.String("root", dir))
	return s, nil
}

// path resolves addr to a filesystem path below the root.
func (s *FileStore) path(addr anystore.Address) (string, error) {
	segs := addr.Segments()
	parts := make([]string, 0, len(segs)+1)
	parts = append(parts, s.root)
	for _, seg := range segs {
		if seg == "." || seg == ".." || strings.ContainsAny(seg, "/\x00"+string(filepath.Separator)) || strings.HasPrefix(seg, tempPrefix) {
			return "", fmt.Errorf("segment %q cannot be used as a file name", seg)
		}
		parts = append(parts, seg)
	}
	return filepath.Join(parts...), nil
}

// pathLock is the lock for one path. refs counts the operations holding or
// waiting for it and is only changed inside locks.Compute; the entry is
// dropped when it reaches zero.
type pathLock struct {
	sync.RWMutex
	refs int
}

func (s *FileStore) acquire(path string) *pathLock {
	l, _ := s.locks.Compute(path, func(l *pathLock, loaded bool) (*pathLock, bool) {
		if !loaded {
			l = &pathLock{}
		}
		l.refs++
		return l, false
	})
	return l
}

func (s *FileStore) release(path string) {
	s.locks.Compute(path, func(l *pathLock, loaded bool) (*pathLock, bool) {
		l.refs--
		return l, l.refs == 0
	})
}

// readLock takes the shared lock for path and returns its release.
func (s *FileStore) readLock(path string) func() {
	l := s.acquire(path)
	l.RLock()
	return func() {
		l.RUnlock()
		s.release(path)
	}
}

// writeLock takes the exclusive lock for path and returns its release.
func (s *FileStore) writeLock(path string) func() {
	l := s.acquire(path)
	l.Lock()
	return func() {
		l.Unlock()
		s.release(path)
	}
}

// Get reads the file at addr. Missing files and directories read as absent.
func (s *FileStore) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p, err := s.path(addr)
	if err != nil {
		return nil, false, anystore.NewBackendError(fsBackend, "get", addr, err)
	}

	defer s.readLock(p)()

	b, err := os.ReadFile(p)
	switch {
	case err == nil:
		return b, true, nil
	case absent(err):
		return nil, false, nil
	}
	if info, serr := os.Stat(p); serr == nil && info.IsDir() {
		return nil, false, nil
	}
	return nil, false, anystore.NewBackendError(fsBackend, "get", addr, err)
}

// Set writes value to the file at addr, creating parent directories.
func (s *FileStore) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(addr)
	if err != nil {
		return anystore.NewBackendError(fsBackend, "set", addr, err)
	}
	if addr.IsRoot() {
		return anystore.NewBackendError(fsBackend, "set", addr, errors.New("the root is a directory"))
	}

	defer s.writeLock(p)()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return anystore.NewBackendError(fsBackend, "set", addr, err)
	}
	if err := s.writeAtomic(p, value); err != nil {
		return anystore.NewBackendError(fsBackend, "set", addr, err)
	}
	return nil
}

func (s *FileStore) writeAtomic(p string, value []byte) error {
	tmp := filepath.Join(filepath.Dir(p), tempPrefix+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	cleanup := func() {
		if rerr := os.Remove(tmp); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			s.logger.Debug("remove temp file", zap.String("path", tmp), zap.Error(rerr))
		}
	}

	if _, err := f.Write(value); err != nil {
		f.Close()
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Delete removes the file at addr. Directories are left alone since they
// hold no value.
func (s *FileStore) Delete(ctx context.Context, addr anystore.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(addr)
	if err != nil {
		return anystore.NewBackendError(fsBackend, "delete", addr, err)
	}

	defer s.writeLock(p)()

	info, err := os.Lstat(p)
	switch {
	case absent(err):
		return nil
	case err != nil:
		return anystore.NewBackendError(fsBackend, "delete", addr, err)
	case info.IsDir():
		return nil
	}
	if err := os.Remove(p); err != nil && !absent(err) {
		return anystore.NewBackendError(fsBackend, "delete", addr, err)
	}
	return nil
}

// List returns the entries of the directory at addr in name order.
func (s *FileStore) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(addr)
	if err != nil {
		return nil, anystore.NewBackendError(fsBackend, "list", addr, err)
	}

	defer s.readLock(p)()

	out := make([]anystore.Address, 0)
	entries, err := os.ReadDir(p)
	switch {
	case absent(err):
		return out, nil
	case err != nil:
		return nil, anystore.NewBackendError(fsBackend, "list", addr, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		out = append(out, addr.Child(e.Name()))
	}
	return out, nil
}

// Scope returns a view of s rooted at addr.
func (s *FileStore) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(s, addr)
}

// Close is a no-op; the store holds no open files between operations.
func (s *FileStore) Close() error {
	return nil
}

// absent reports errors meaning "nothing at this path": the path or one
// of its parents is missing, or a parent is a regular file.
func absent(err error) bool {
	return err != nil && (errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR))
}
