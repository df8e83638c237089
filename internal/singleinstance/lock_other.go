//go:build !windows

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quicklaunch/internal/userutil"

	"github.com/gofrs/flock"
)

// Lock holds an exclusive advisory lock on a file. The kernel drops the lock
// when the owning process exits, so a stale file never blocks a new instance.
type Lock struct {
	file *flock.Flock
}

// TryLock attempts to take the lock file at path without blocking.
// Returns ErrAlreadyRunning if another process already holds it.
func TryLock(path string) (*Lock, error) {
	if path == "" {
		return nil, errors.New("lock path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	file := flock.New(path)
	locked, err := file.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %q: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	return &Lock{file: file}, nil
}

// Release drops the lock. Safe to call on nil receiver and idempotent.
// The lock file is left in place; removing it would race a starting instance.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Unlock()
	l.file = nil
	return err
}

// DefaultName returns the per-user lock file path under XDG_RUNTIME_DIR, or the
// temp directory when it is unset.
func DefaultName() string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, userutil.InstanceName(instancePrefix)+".lock")
}
