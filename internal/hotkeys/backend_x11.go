//go:build linux

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"quicklaunch/internal/keymap"

	"github.com/robotn/xgbutil"
	"github.com/robotn/xgbutil/keybind"
	"github.com/robotn/xgbutil/xevent"
)

type keyEvent = struct{}

// combo is a keybind key string such as "control-mod1-space".
type combo string

func (c combo) String() string { return string(c) }

// X11 has no named Alt/Super modifiers; they live on Mod1 and Mod4.
var modifierMap = map[keymap.Modifier]string{
	keymap.Ctrl:  "control",
	keymap.Shift: "shift",
	keymap.Alt:   "mod1",
	keymap.Meta:  "mod4",
}

var keysymByCode = buildKeysyms()

func buildKeysyms() map[keymap.Code]string {
	keysyms := map[keymap.Code]string{
		"Space":      "space",
		"Enter":      "Return",
		"Escape":     "Escape",
		"Tab":        "Tab",
		"Delete":     "Delete",
		"ArrowLeft":  "Left",
		"ArrowRight": "Right",
		"ArrowUp":    "Up",
		"ArrowDown":  "Down",
	}
	for c := 'A'; c <= 'Z'; c++ {
		keysyms[keymap.Code("Key"+string(c))] = strings.ToLower(string(c))
	}
	for d := '0'; d <= '9'; d++ {
		keysyms[keymap.Code("Digit"+string(d))] = string(d)
	}
	for n := 1; n <= 20; n++ {
		name := fmt.Sprintf("F%d", n)
		keysyms[keymap.Code(name)] = name
	}
	return keysyms
}

// platformKey renders b as a keybind key string.
func platformKey(b keymap.Binding) (combo, error) {
	keysym, ok := keysymByCode[b.Code()]
	if !ok {
		return "", fmt.Errorf("key %q is not supported on X11", string(b.Code()))
	}
	names := b.Modifiers().List()
	if len(names) == 0 {
		return "", keymap.ErrNoModifier
	}
	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		mod, ok := modifierMap[name]
		if !ok {
			return "", fmt.Errorf("modifier %q is not supported on X11", string(name))
		}
		parts = append(parts, mod)
	}
	return combo(strings.Join(append(parts, keysym), "-")), nil
}

const eventLoopStopTimeout = time.Second

// connectX11 opens the display named by $DISPLAY. It fails, rather than
// panics, when no X server is reachable.
var connectX11 = xgbutil.NewConn

var newOSHotkey = func(c combo) osHotkey {
	return &x11Hotkey{
		keys: c,
		down: make(chan keyEvent),
		up:   make(chan keyEvent),
	}
}

// x11Hotkey grabs one key combination on the root window through its own
// X connection and event loop.
type x11Hotkey struct {
	keys combo
	down chan keyEvent
	up   chan keyEvent

	mu   sync.Mutex
	xu   *xgbutil.XUtil
	stop chan struct{}
	done chan struct{}
}

func (h *x11Hotkey) Register() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.xu != nil {
		return errors.New("hotkey already registered")
	}

	xu, err := connectX11()
	if err != nil {
		return fmt.Errorf("%w: open X display: %w", errBackendUnavailable, err)
	}
	keybind.Initialize(xu)
	root := xu.RootWin()
	stop := make(chan struct{})

	press := keybind.KeyPressFun(func(*xgbutil.XUtil, xevent.KeyPressEvent) {
		forward(h.down, stop)
	})
	if err := press.Connect(xu, root, string(h.keys), true); err != nil {
		xu.Conn().Close()
		return err
	}
	release := keybind.KeyReleaseFun(func(*xgbutil.XUtil, xevent.KeyReleaseEvent) {
		forward(h.up, stop)
	})
	if err := release.Connect(xu, root, string(h.keys), false); err != nil {
		keybind.Detach(xu, root)
		xu.Conn().Close()
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		xevent.Main(xu)
	}()
	h.xu, h.stop, h.done = xu, stop, done
	return nil
}

// Unregister releases the grab and stops the event loop. Closing the
// connection also drops any grab the server still holds for it.
func (h *x11Hotkey) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.xu == nil {
		return nil
	}
	xu, done := h.xu, h.done
	h.xu, h.done = nil, nil
	close(h.stop)

	keybind.Detach(xu, xu.RootWin())
	xevent.Quit(xu)
	xu.Conn().Close()

	select {
	case <-done:
	case <-time.After(eventLoopStopTimeout):
		slog.Warn("[DEBUG-HOTKEY] X event loop did not stop", "keys", string(h.keys))
	}
	return nil
}

func (h *x11Hotkey) Keydown() <-chan keyEvent { return h.down }
func (h *x11Hotkey) Keyup() <-chan keyEvent   { return h.up }

// forward runs on the X event loop. It blocks until the delivery loop takes
// the event or the grab is released.
func forward(ch chan<- keyEvent, stop <-chan struct{}) {
	select {
	case ch <- keyEvent{}:
	case <-stop:
	}
}
