package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quicklaunch/internal/keymap"
	"quicklaunch/internal/workerutil"
)

var (
	// ErrConflict is returned when the binding is already live in this process
	// or the OS refused it because another application owns it.
	ErrConflict = errors.New("hotkey conflict")
	// ErrRegistrationFailed is returned when the binding cannot be expressed on
	// this platform or the registration request itself is invalid.
	ErrRegistrationFailed = errors.New("hotkey registration failed")
	// ErrActive is returned by Register while another binding is live.
	// Use Rebind to replace it.
	ErrActive = errors.New("another hotkey is already registered")
	// ErrDeliveryStopped is reported through the lost callback when the
	// delivery loop kept panicking and was abandoned.
	ErrDeliveryStopped = errors.New("hotkey delivery stopped")

	// errBackendUnavailable marks a backend that cannot run in this session,
	// such as X11 without a reachable display.
	errBackendUnavailable = errors.New("hotkey backend unavailable")
)

// repeatWindow suppresses OS key auto-repeat: a key-down that follows the
// previous key-down within this window, without a key-up in between, is dropped.
const repeatWindow = 250 * time.Millisecond

// osHotkey is one OS-level grab. The platform backends provide newOSHotkey,
// combo and keyEvent.
type osHotkey interface {
	Register() error
	Unregister() error
	Keydown() <-chan keyEvent
	Keyup() <-chan keyEvent
}

var nowFn = time.Now

// deliveryRecovery holds the restart budget of delivery loops. The zero value
// selects the workerutil defaults.
var deliveryRecovery = workerutil.RecoveryOptions{}

// registration holds a single live OS registration and its delivery loop.
type registration struct {
	binding   keymap.Binding
	onTrigger func()
	hk        osHotkey
	cancel    context.CancelFunc
	loopWG    sync.WaitGroup
}

// Registry owns at most one live global hotkey.
// onTrigger callbacks run on a dedicated delivery goroutine and must not call
// back into the Registry.
type Registry struct {
	mu     sync.Mutex
	active *registration
	onLost func(error)
}

// NewRegistry creates an empty registry. onLost, when not nil, is called on
// its own goroutine with an error wrapping ErrDeliveryStopped if a delivery
// loop gives up after repeated panics.
func NewRegistry(onLost func(error)) *Registry {
	return &Registry{onLost: onLost}
}

// Register makes b live system-wide and binds onTrigger to it.
func (r *Registry) Register(b keymap.Binding, onTrigger func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		if r.active.binding.Equal(b) {
			return fmt.Errorf("%w: %s is already registered", ErrConflict, b)
		}
		return fmt.Errorf("%w: %s", ErrActive, r.active.binding)
	}
	reg, err := r.registerOS(b, onTrigger)
	if err != nil {
		return err
	}
	r.active = reg
	slog.Debug("[DEBUG-HOTKEY] registered", "binding", b.String())
	return nil
}

// Unregister releases the live binding. Calling it with nothing registered is
// a no-op.
func (r *Registry) Unregister() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked()
}

// Rebind replaces the live binding with b. On failure the previous binding is
// restored and the registration error is returned. Rebinding to the binding
// that is already live is a no-op.
func (r *Registry) Rebind(b keymap.Binding, onTrigger func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.active
	if previous != nil && previous.binding.Equal(b) {
		return nil
	}
	if b.IsZero() || onTrigger == nil {
		return fmt.Errorf("%w: binding and callback are required", ErrRegistrationFailed)
	}
	r.unregisterLocked()

	reg, err := r.registerOS(b, onTrigger)
	if err == nil {
		r.active = reg
		slog.Debug("[DEBUG-HOTKEY] rebound", "binding", b.String())
		return nil
	}
	if previous == nil {
		return err
	}

	restored, restoreErr := r.registerOS(previous.binding, previous.onTrigger)
	if restoreErr != nil {
		slog.Error("[DEBUG-HOTKEY] failed to restore previous binding after rebind failure",
			"previous", previous.binding.String(), "error", restoreErr)
		return errors.Join(err, fmt.Errorf("restore %s: %w", previous.binding, restoreErr))
	}
	r.active = restored
	slog.Warn("[DEBUG-HOTKEY] rebind failed, previous binding restored",
		"requested", b.String(), "previous", previous.binding.String(), "error", err)
	return err
}

// Active returns the live binding, if any.
func (r *Registry) Active() (keymap.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return keymap.Binding{}, false
	}
	return r.active.binding, true
}

func (r *Registry) unregisterLocked() {
	reg := r.active
	if reg == nil {
		return
	}
	r.active = nil
	// The loop reads the grab's channels; stop it before the grab goes away.
	reg.cancel()
	reg.loopWG.Wait()
	if err := reg.hk.Unregister(); err != nil {
		slog.Warn("[DEBUG-HOTKEY] unregister failed", "binding", reg.binding.String(), "error", err)
	}
	slog.Debug("[DEBUG-HOTKEY] unregistered", "binding", reg.binding.String())
}

func (r *Registry) registerOS(b keymap.Binding, onTrigger func()) (*registration, error) {
	if onTrigger == nil {
		return nil, fmt.Errorf("%w: onTrigger callback is required", ErrRegistrationFailed)
	}
	keys, err := platformKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	hk := newOSHotkey(keys)
	if err := hk.Register(); err != nil {
		if errors.Is(err, errBackendUnavailable) {
			return nil, fmt.Errorf("%w: %s: %w", ErrRegistrationFailed, b, err)
		}
		// The backends cannot tell "owned by another application" apart from
		// other OS refusals, so every refusal surfaces as a conflict.
		return nil, fmt.Errorf("%w: register %s: %w", ErrConflict, b, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg := &registration{
		binding:   b,
		onTrigger: onTrigger,
		hk:        hk,
		cancel:    cancel,
	}
	opts := deliveryRecovery
	opts.OnPanic = func(_ string, attempt int) {
		slog.Warn("[DEBUG-HOTKEY] delivery loop panicked", "binding", b.String(), "attempt", attempt)
	}
	opts.OnFatal = func(_ string, maxRetries int) {
		r.reportLost(fmt.Errorf("%w: %s after %d panics", ErrDeliveryStopped, b, maxRetries))
	}
	opts.IsShutdown = func() bool { return ctx.Err() != nil }
	workerutil.RunWithPanicRecovery(ctx, "hotkey-delivery", &reg.loopWG, func(ctx context.Context) {
		deliver(ctx, hk, onTrigger)
	}, opts)
	return reg, nil
}

func (r *Registry) reportLost(err error) {
	slog.Error("[DEBUG-HOTKEY] hotkey no longer delivered", "error", err)
	if r.onLost != nil {
		// The callback may shut down the app, which unregisters and waits for
		// this very loop.
		go r.onLost(err)
	}
}

// deliver forwards key-down events to onTrigger, dropping auto-repeats.
// The channels are read once; the grab may not be touched while the loop runs.
func deliver(ctx context.Context, hk osHotkey, onTrigger func()) {
	down, up := hk.Keydown(), hk.Keyup()
	held := false
	var lastDown time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-down:
			if !ok {
				return
			}
			now := nowFn()
			if held && now.Sub(lastDown) < repeatWindow {
				lastDown = now
				slog.Debug("[DEBUG-HOTKEY] auto-repeat suppressed")
				continue
			}
			held = true
			lastDown = now
			onTrigger()
		case _, ok := <-up:
			if !ok {
				return
			}
			held = false
		}
	}
}
