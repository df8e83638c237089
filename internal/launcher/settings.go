package launcher

import (
	"fmt"
	"time"

	"quicklaunch/internal/inject"
)

const (
	// DefaultRevealDelay gives the target window time to regain focus after
	// the popup is minimised.
	DefaultRevealDelay = 70 * time.Millisecond

	// ExitGrace lets the popup hide animation finish before a single-shot
	// process exits.
	ExitGrace = 800 * time.Millisecond
)

// Settings are process-scoped and immutable after startup.
type Settings struct {
	// SingleShot runs a popup-only process that exits after one cycle.
	SingleShot bool

	// StartHidden keeps the main window hidden at startup.
	StartHidden bool

	// RevealDelay is the pause between minimising the popup and typing.
	// Zero types synchronously on the confirming call path.
	RevealDelay time.Duration

	Injector inject.Config

	// ExitGrace overrides the single-shot exit grace period. Zero selects
	// the package ExitGrace.
	ExitGrace time.Duration
}

// DefaultSettings returns the settings used without any flags.
func DefaultSettings() Settings {
	return Settings{
		RevealDelay: DefaultRevealDelay,
		Injector: inject.Config{
			Kind:     inject.KindDirect,
			Helper:   inject.DefaultHelper,
			KeyDelay: inject.DefaultKeyDelay,
		},
		ExitGrace: ExitGrace,
	}
}

// Validate rejects settings that cannot be acted on.
func (s Settings) Validate() error {
	if s.RevealDelay < 0 {
		return fmt.Errorf("reveal delay must not be negative: %v", s.RevealDelay)
	}
	if s.ExitGrace < 0 {
		return fmt.Errorf("exit grace must not be negative: %v", s.ExitGrace)
	}
	if s.Injector.KeyDelay < 0 {
		return fmt.Errorf("key delay must not be negative: %v", s.Injector.KeyDelay)
	}
	if _, err := inject.ParseKind(string(s.Injector.Kind)); err != nil {
		return err
	}
	return nil
}

func (s Settings) exitGrace() time.Duration {
	if s.ExitGrace <= 0 {
		return ExitGrace
	}
	return s.ExitGrace
}
