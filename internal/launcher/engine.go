// Package launcher wires the hotkey, window and injection components into the
// trigger, confirm and rebind flows.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"quicklaunch/internal/config"
	"quicklaunch/internal/inject"
	"quicklaunch/internal/keymap"
	"quicklaunch/internal/window"
	"quicklaunch/internal/workerutil"

	"github.com/google/uuid"
)

var (
	// ErrHotkeyUnavailable is returned by Start when the stored binding cannot
	// be registered. The process cannot do its job and should exit.
	ErrHotkeyUnavailable = errors.New("global hotkey unavailable")
	// ErrRebindUnavailable is returned for rebind requests in single-shot
	// mode; the background instance owns the hotkey.
	ErrRebindUnavailable = errors.New("rebinding is unavailable in single-shot mode")
)

// Event names emitted through Deps.Emit.
const (
	EventConfigUpdated  = "config:updated"
	EventInjectFailed   = "inject:failed"
	EventInjectComplete = "inject:complete"
)

const (
	injectTimeout       = 30 * time.Second
	shutdownWaitTimeout = 10 * time.Second
)

// Windows is the window lifecycle surface the engine drives.
type Windows interface {
	Start()
	Show(id window.ID) error
	Hide(id window.ID) error
	Minimise(id window.ID) error
}

// Hotkeys is the registry surface the engine drives.
type Hotkeys interface {
	Register(b keymap.Binding, onTrigger func()) error
	Rebind(b keymap.Binding, onTrigger func()) error
	Unregister()
	Active() (keymap.Binding, bool)
}

// BindingStore persists the binding.
type BindingStore interface {
	Load() keymap.Binding
	Save(b keymap.Binding) error
}

// Deps are the engine's collaborators. Exit and Emit may be nil.
type Deps struct {
	Settings Settings
	Windows  Windows
	Injector inject.Backend
	Hotkeys  Hotkeys
	Store    BindingStore

	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)

	// Emit forwards engine events to the UI.
	Emit func(name string, payload any)
}

// pendingInjection is one confirmed value waiting to be typed.
type pendingInjection struct {
	cycleID string
	text    string
	delay   time.Duration
}

// InjectionResult is the payload of the inject:* events.
type InjectionResult struct {
	CycleID string `json:"cycle_id"`
	Error   string `json:"error,omitempty"`
}

// Engine orchestrates the launcher.
type Engine struct {
	settings Settings
	windows  Windows
	injector inject.Backend
	hotkeys  Hotkeys
	store    BindingStore
	exit     func(code int)
	emit     func(name string, payload any)

	// mu guards binding and serializes rebinds.
	mu         sync.Mutex
	binding    keymap.Binding
	registered bool

	tasks         sync.WaitGroup
	exitWG        sync.WaitGroup
	exitScheduled atomic.Bool
}

// New validates deps and builds an engine.
func New(deps Deps) (*Engine, error) {
	if err := deps.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("launcher settings: %w", err)
	}
	if deps.Windows == nil {
		return nil, fmt.Errorf("launcher: %w", window.ErrWindowHandleMissing)
	}
	if deps.Injector == nil || deps.Hotkeys == nil || deps.Store == nil {
		return nil, errors.New("launcher: injector, hotkeys and store are required")
	}
	exit := deps.Exit
	if exit == nil {
		exit = os.Exit
	}
	return &Engine{
		settings: deps.Settings,
		windows:  deps.Windows,
		injector: deps.Injector,
		hotkeys:  deps.Hotkeys,
		store:    deps.Store,
		exit:     exit,
		emit:     deps.Emit,
	}, nil
}

// Start loads the stored binding, registers it and applies the initial window
// state. Single-shot processes skip registration.
func (e *Engine) Start() error {
	b := e.store.Load()

	e.mu.Lock()
	e.binding = b
	if !e.settings.SingleShot {
		if err := e.hotkeys.Register(b, e.OnHotkeyTriggered); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s: %w", ErrHotkeyUnavailable, b, err)
		}
		e.registered = true
	}
	e.mu.Unlock()

	e.windows.Start()
	slog.Info("[DEBUG-LAUNCHER] started",
		"binding", b.String(),
		"singleShot", e.settings.SingleShot,
		"revealDelay", e.settings.RevealDelay,
		"injector", string(e.settings.Injector.Kind),
	)
	return nil
}

// OnHotkeyTriggered shows the popup.
func (e *Engine) OnHotkeyTriggered() {
	if err := e.windows.Show(window.Popup); err != nil {
		slog.Warn("[DEBUG-LAUNCHER] show popup failed", "error", err)
	}
}

// OnValueConfirmed minimises the popup, types value followed by Enter and
// hides the popup. With a reveal delay the typing runs on a background task
// and OnValueConfirmed returns immediately.
func (e *Engine) OnValueConfirmed(value string) {
	if err := e.windows.Minimise(window.Popup); err != nil {
		slog.Warn("[DEBUG-LAUNCHER] minimise popup failed", "error", err)
	}

	p := pendingInjection{
		cycleID: uuid.NewString(),
		text:    value,
		delay:   e.settings.RevealDelay,
	}
	if p.delay > 0 {
		workerutil.Go(&e.tasks, "delayed-injection", func() {
			e.runInjection(p)
		})
		return
	}
	e.runInjection(p)
}

func (e *Engine) runInjection(p pendingInjection) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	ctx, cancel := context.WithTimeout(context.Background(), injectTimeout)
	err := e.injector.Type(ctx, p.text)
	cancel()

	if err != nil {
		slog.Warn("[DEBUG-LAUNCHER] injection failed", "cycle", p.cycleID, "error", err)
		e.emitEvent(EventInjectFailed, InjectionResult{CycleID: p.cycleID, Error: err.Error()})
	} else {
		slog.Debug("[DEBUG-LAUNCHER] injection complete", "cycle", p.cycleID, "delay", p.delay)
		e.emitEvent(EventInjectComplete, InjectionResult{CycleID: p.cycleID})
	}

	if hideErr := e.windows.Hide(window.Popup); hideErr != nil {
		slog.Warn("[DEBUG-LAUNCHER] hide popup failed", "cycle", p.cycleID, "error", hideErr)
	}
	if e.settings.SingleShot {
		e.RequestExit()
	}
}

// OnRebindRequested replaces the active binding. The new binding is registered
// first and persisted second; if either step fails the previous binding stays
// registered, stored and returned by Binding. If the save fails and the
// previous binding cannot be registered again either, the registry keeps the
// new binding live; Binding then reports that live binding while the file
// still holds the previous one.
func (e *Engine) OnRebindRequested(mods keymap.ModifierSet, code keymap.Code) (keymap.Binding, error) {
	if e.settings.SingleShot {
		return keymap.Binding{}, ErrRebindUnavailable
	}
	next, err := keymap.New(mods, code)
	if err != nil {
		return keymap.Binding{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.binding
	if err := e.hotkeys.Rebind(next, e.OnHotkeyTriggered); err != nil {
		return previous, fmt.Errorf("rebind %s: %w", next, err)
	}
	if err := e.store.Save(next); err != nil {
		if restoreErr := e.hotkeys.Rebind(previous, e.OnHotkeyTriggered); restoreErr != nil {
			live, ok := e.hotkeys.Active()
			if ok {
				e.binding = live
			}
			e.registered = ok
			slog.Error("[DEBUG-LAUNCHER] failed to restore previous hotkey after save failure",
				"previous", previous.String(), "live", live.String(), "error", restoreErr)
			return e.binding, errors.Join(err, restoreErr)
		}
		return previous, err
	}
	e.binding = next
	e.registered = true

	slog.Info("[DEBUG-LAUNCHER] hotkey rebound", "previous", previous.String(), "binding", next.String())
	e.emitEvent(EventConfigUpdated, config.FileFromBinding(next))
	return next, nil
}

// Binding returns the active binding.
func (e *Engine) Binding() keymap.Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.binding
}

// Settings returns the startup settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// RequestExit schedules process exit with code 0 after the grace period.
// Only the first request schedules anything.
func (e *Engine) RequestExit() {
	if !e.exitScheduled.CompareAndSwap(false, true) {
		return
	}
	grace := e.settings.exitGrace()
	slog.Debug("[DEBUG-LAUNCHER] exit scheduled", "grace", grace)
	workerutil.Go(&e.exitWG, "delayed-exit", func() {
		time.Sleep(grace)
		e.exit(0)
	})
}

// Quit exits immediately with code 0.
func (e *Engine) Quit() {
	e.exit(0)
}

// Close unregisters the hotkey and waits for pending injections.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.registered {
		e.hotkeys.Unregister()
		e.registered = false
	}
	e.mu.Unlock()

	if !workerutil.WaitTimeout(&e.tasks, shutdownWaitTimeout) {
		slog.Warn("[DEBUG-LAUNCHER] timed out waiting for pending injections")
	}
}

func (e *Engine) emitEvent(name string, payload any) {
	if e.emit == nil {
		return
	}
	e.emit(name, payload)
}
