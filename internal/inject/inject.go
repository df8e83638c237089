// Package inject types a confirmed value into whichever window has keyboard
// focus, followed by a single Enter. Two backends exist: direct synthesis
// through robotgo, and an external helper process (xdotool, ydotool, wtype).
package inject

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyText is returned for an empty value; nothing is typed.
	ErrEmptyText = errors.New("nothing to type")
	// ErrHelperFailed is returned when the helper process cannot be started
	// or exits with a non-zero status.
	ErrHelperFailed = errors.New("injection helper failed")
	// ErrUnknownKind is returned by New for an unsupported backend kind.
	ErrUnknownKind = errors.New("unknown injector kind")
	// ErrUnknownHelper is returned by New for a helper without a known profile.
	ErrUnknownHelper = errors.New("unknown injection helper")
)

// Backend types text and then Enter into the focused window.
// There is no undo if focus moves while the sequence is in flight.
type Backend interface {
	Type(ctx context.Context, text string) error
}

// Kind selects a backend.
type Kind string

const (
	KindDirect   Kind = "direct"
	KindExternal Kind = "external"
)

const (
	// DefaultKeyDelay paces synthesized key events on Linux, where X servers
	// and compositors drop events that arrive too fast.
	DefaultKeyDelay = 12 * time.Millisecond

	// DefaultHelper is used by the external backend when none is named.
	DefaultHelper = "ydotool"

	defaultHelperTimeout = 10 * time.Second
)

// Config is the startup-time injector selection.
type Config struct {
	Kind Kind

	// Helper is the helper binary name or path (external only).
	Helper string

	// Args replace the helper's default tuning flags (external only).
	Args []string

	// KeyDelay paces key events. Zero selects DefaultKeyDelay.
	KeyDelay time.Duration

	// Timeout bounds a single helper invocation. Zero selects 10s.
	Timeout time.Duration
}

// ParseKind resolves a backend kind name.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case "", KindDirect:
		return KindDirect, nil
	case KindExternal:
		return KindExternal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// New builds the backend described by cfg. The result depends on cfg alone.
func New(cfg Config) (Backend, error) {
	if cfg.KeyDelay <= 0 {
		cfg.KeyDelay = DefaultKeyDelay
	}
	switch cfg.Kind {
	case "", KindDirect:
		return newDirect(cfg.KeyDelay), nil
	case KindExternal:
		return newExternal(cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(cfg.Kind))
}

func validateText(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return ctx.Err()
}
