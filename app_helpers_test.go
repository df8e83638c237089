package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"quicklaunch/internal/config"
	"quicklaunch/internal/hotkeys"
	"quicklaunch/internal/inject"
	"quicklaunch/internal/ipc"
	"quicklaunch/internal/keymap"
	"quicklaunch/internal/launcher"
	"quicklaunch/internal/sessionlog"

	"github.com/gen2brain/beeep"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// NOTE: Tests in this package override package-level function variables
// (runtimeWindowShowFn, newHotkeysFn, notifyFn, etc.). Do not use t.Parallel().

// testLogger implements appRuntimeLogger and records formatted messages.
type testLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *testLogger) Warningf(_ context.Context, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(message, args...))
}

func (l *testLogger) Infof(_ context.Context, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(message, args...))
}

func (l *testLogger) Errorf(_ context.Context, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(message, args...))
}

func (l *testLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func (l *testLogger) infoMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.infos...)
}

func (l *testLogger) errorMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// runtimeRecorder stands in for the Wails runtime and records every call in
// order.
type runtimeRecorder struct {
	mu        sync.Mutex
	calls     []string
	listeners map[string]func(...any)
	unsubbed  []string
	notified  []string
	exitCodes []int
	logger    *testLogger
}

func (r *runtimeRecorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *runtimeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *runtimeRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *runtimeRecorder) count(call string) int {
	n := 0
	for _, c := range r.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

func (r *runtimeRecorder) listener(name string) func(...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listeners[name]
}

func describePayload(payload []any) string {
	if len(payload) == 0 {
		return ""
	}
	switch p := payload[0].(type) {
	case viewChangedEvent:
		return ":" + p.View
	default:
		return ""
	}
}

// installRuntimeRecorder swaps every Wails runtime seam for the recorder and
// restores them in t.Cleanup.
func installRuntimeRecorder(t *testing.T) *runtimeRecorder {
	t.Helper()
	rec := &runtimeRecorder{listeners: map[string]func(...any){}, logger: &testLogger{}}

	t.Cleanup(func() {
		runtimeEventsEmitFn = runtime.EventsEmit
		runtimeEventsOnFn = runtime.EventsOn
		runtimeLogger = wailsRuntimeLogger{}
		runtimeQuitFn = runtime.Quit
		runtimeWindowShowFn = runtime.WindowShow
		runtimeWindowHideFn = runtime.WindowHide
		runtimeWindowMinimiseFn = runtime.WindowMinimise
		runtimeWindowUnminimiseFn = runtime.WindowUnminimise
		runtimeWindowSetAlwaysOnTopFn = runtime.WindowSetAlwaysOnTop
		runtimeWindowSetSizeFn = runtime.WindowSetSize
		runtimeWindowCenterFn = runtime.WindowCenter
		newActivationServerFn = ipc.NewServer
		notifyFn = beeep.Notify
		osExitFn = os.Exit
	})

	runtimeEventsEmitFn = func(_ context.Context, name string, payload ...any) {
		rec.record("emit:" + name + describePayload(payload))
	}
	runtimeEventsOnFn = func(_ context.Context, name string, cb func(...any)) func() {
		rec.mu.Lock()
		rec.listeners[name] = cb
		rec.mu.Unlock()
		return func() {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			delete(rec.listeners, name)
			rec.unsubbed = append(rec.unsubbed, name)
		}
	}
	runtimeLogger = rec.logger
	runtimeQuitFn = func(context.Context) { rec.record("quit") }
	runtimeWindowShowFn = func(context.Context) { rec.record("show") }
	runtimeWindowHideFn = func(context.Context) { rec.record("hide") }
	runtimeWindowMinimiseFn = func(context.Context) { rec.record("minimise") }
	runtimeWindowUnminimiseFn = func(context.Context) { rec.record("unminimise") }
	runtimeWindowSetAlwaysOnTopFn = func(_ context.Context, b bool) {
		rec.record(fmt.Sprintf("top:%t", b))
	}
	runtimeWindowSetSizeFn = func(_ context.Context, w, h int) {
		rec.record(fmt.Sprintf("size:%dx%d", w, h))
	}
	runtimeWindowCenterFn = func(context.Context) { rec.record("center") }
	// A handler-less server fails Start, which startup treats as non-fatal.
	newActivationServerFn = func(string, ipc.Handler) *ipc.Server {
		return ipc.NewServer("", nil)
	}
	notifyFn = func(title, message string, _ any) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.notified = append(rec.notified, title+": "+message)
		return nil
	}
	osExitFn = func(code int) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.exitCodes = append(rec.exitCodes, code)
	}
	return rec
}

// appHotkeys is an in-memory registry; combos in taken are refused.
type appHotkeys struct {
	mu           sync.Mutex
	taken        map[string]bool
	bound        keymap.Binding
	active       bool
	trigger      func()
	unregistered int
	onLost       func(error)
}

func (h *appHotkeys) Register(b keymap.Binding, onTrigger func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		return hotkeys.ErrActive
	}
	if h.taken[b.String()] {
		return fmt.Errorf("%w: %s", hotkeys.ErrConflict, b)
	}
	h.bound, h.active, h.trigger = b, true, onTrigger
	return nil
}

func (h *appHotkeys) Rebind(b keymap.Binding, onTrigger func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.taken[b.String()] {
		return fmt.Errorf("%w: %s", hotkeys.ErrConflict, b)
	}
	h.bound, h.active, h.trigger = b, true, onTrigger
	return nil
}

func (h *appHotkeys) Unregister() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = false
	h.unregistered++
}

func (h *appHotkeys) Active() (keymap.Binding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound, h.active
}

func (h *appHotkeys) fire() {
	h.mu.Lock()
	trigger := h.trigger
	h.mu.Unlock()
	if trigger != nil {
		trigger()
	}
}

func (h *appHotkeys) current() keymap.Binding {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

type appInjector struct {
	mu    sync.Mutex
	typed []string
	err   error
}

func (i *appInjector) Type(_ context.Context, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.typed = append(i.typed, text)
	return nil
}

func (i *appInjector) texts() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.typed...)
}

type appFixture struct {
	app      *App
	runtime  *runtimeRecorder
	hotkeys  *appHotkeys
	injector *appInjector
}

func testSettings() launcher.Settings {
	s := launcher.DefaultSettings()
	s.RevealDelay = 0
	s.ExitGrace = time.Millisecond
	return s
}

// newTestApp builds an App over fakes. The runtime context is set by calling
// startup explicitly.
func newTestApp(t *testing.T, settings launcher.Settings) *appFixture {
	t.Helper()
	rec := installRuntimeRecorder(t)

	fx := &appFixture{
		runtime:  rec,
		hotkeys:  &appHotkeys{taken: map[string]bool{}},
		injector: &appInjector{},
	}
	origHotkeys, origInjector := newHotkeysFn, newInjectorFn
	t.Cleanup(func() {
		newHotkeysFn, newInjectorFn = origHotkeys, origInjector
	})
	newHotkeysFn = func(onLost func(error)) launcher.Hotkeys {
		fx.hotkeys.onLost = onLost
		return fx.hotkeys
	}
	newInjectorFn = func(inject.Config) (inject.Backend, error) { return fx.injector, nil }

	store, err := config.NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	app, err := NewApp(settings, store, sessionlog.NewMemory())
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	fx.app = app
	t.Cleanup(func() { app.engine.Close() })
	return fx
}

// start runs the startup hook and clears the recorded calls.
func (fx *appFixture) start(t *testing.T) {
	t.Helper()
	fx.app.startup(context.Background())
	if err := fx.app.fatalError(); err != nil {
		t.Fatalf("startup failed: %v", err)
	}
	fx.runtime.reset()
}

func containsSubstring(values []string, sub string) bool {
	for _, v := range values {
		if strings.Contains(v, sub) {
			return true
		}
	}
	return false
}
