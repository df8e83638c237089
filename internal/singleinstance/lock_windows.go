//go:build windows

package singleinstance

import (
	"errors"
	"fmt"

	"quicklaunch/internal/userutil"

	"golang.org/x/sys/windows"
)

// Lock owns a named mutex in the session namespace. The kernel drops it when
// the process exits, so a crashed launcher never blocks the next start.
type Lock struct {
	handle windows.Handle
}

// TryLock creates and owns the mutex called name.
// It returns ErrAlreadyRunning when another launcher created it first.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	ptr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("lock name %q: %w", name, err)
	}
	h, err := windows.CreateMutex(nil, true, ptr)
	switch {
	case err == nil:
		return &Lock{handle: h}, nil
	case errors.Is(err, windows.ERROR_ALREADY_EXISTS):
		closeHandle(h)
		return nil, ErrAlreadyRunning
	default:
		closeHandle(h)
		return nil, fmt.Errorf("create mutex %q: %w", name, err)
	}
}

// closeHandle drops the duplicate handle CreateMutex returns on failure.
func closeHandle(h windows.Handle) {
	if h != 0 {
		_ = windows.CloseHandle(h)
	}
}

// Release gives up the mutex. It is idempotent and safe on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	h := l.handle
	l.handle = 0
	return windows.CloseHandle(h)
}

// DefaultName is the per-user mutex name in the session namespace.
func DefaultName() string {
	return `Local\` + userutil.InstanceName(instancePrefix)
}
