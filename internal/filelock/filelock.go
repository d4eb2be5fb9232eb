// Package filelock provides per-file advisory locks and atomic writes for the
// commit path: backup-then-rewrite must not interleave with another writer on
// the same file.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockSuffix is appended to the target path to form the sidecar lock file.
const lockSuffix = ".lock"

// FileLock wraps a flock advisory lock on a sidecar file next to the target.
type FileLock struct {
	fl   *flock.Flock
	path string
}

// New creates a lock guarding the given target path.
func New(target string) *FileLock {
	lockPath := target + lockSuffix
	return &FileLock{fl: flock.New(lockPath), path: lockPath}
}

// Lock blocks until the exclusive lock is acquired.
func (l *FileLock) Lock() error {
	if err := l.fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	return nil
}

// Unlock releases the lock and removes the sidecar file.
func (l *FileLock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	_ = os.Remove(l.path)
	return nil
}

// WithLock runs fn while holding the exclusive lock for target.
func WithLock(target string, fn func() error) error {
	l := New(target)
	if err := l.Lock(); err != nil {
		return err
	}
	defer func() { _ = l.Unlock() }()
	return fn()
}

// AtomicWrite writes data to path via a temp file in the same directory and
// an atomic rename, so readers never observe a partial write. Parent
// directories are created as needed.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	tmp = nil
	return nil
}
