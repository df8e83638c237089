// Package window tracks the visibility of the launcher's two windows and turns
// OS close requests into hide operations.
package window

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrWindowHandleMissing is returned when a required window surface was
	// not provided at startup.
	ErrWindowHandleMissing = errors.New("window handle missing")
	// ErrUnknownWindow is returned for an ID the controller does not manage.
	ErrUnknownWindow = errors.New("unknown window")
)

// ID names a managed window.
type ID string

const (
	Main  ID = "main"
	Popup ID = "popup"
)

// Visibility is the logical state of a window.
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "hidden"
}

// Surface performs the OS-level operations on one window.
type Surface interface {
	Show()
	Hide()
	Minimise()
	Unminimise()
	Focus()
}

// Options configures a Controller.
type Options struct {
	// SingleShot makes the process exit when the popup is closed.
	SingleShot bool

	// StartHidden keeps the main window hidden at startup.
	StartHidden bool

	// OnExitRequested is called, after the popup has been hidden, when a close
	// request arrives in single-shot mode. May be nil.
	OnExitRequested func()
}

type handle struct {
	// op serializes a state change with its surface calls. It is taken before
	// Controller.mu and held while the surface runs.
	op sync.Mutex

	surface          Surface
	visibility       Visibility
	closeIntercepted bool
}

// Controller owns the main and popup window handles.
// Operations on one handle are serialized, so the logical state always
// matches the last surface call. Surfaces may read the controller (Visibility,
// CloseIntercepted) but must not call Show, Hide or Minimise on the handle
// they are serving.
type Controller struct {
	mu      sync.Mutex
	handles map[ID]*handle
	opts    Options
}

// NewController validates that both surfaces exist.
func NewController(surfaces map[ID]Surface, opts Options) (*Controller, error) {
	handles := make(map[ID]*handle, 2)
	for _, id := range []ID{Main, Popup} {
		surface := surfaces[id]
		if surface == nil {
			return nil, fmt.Errorf("%w: %s", ErrWindowHandleMissing, id)
		}
		handles[id] = &handle{surface: surface, closeIntercepted: true}
	}
	return &Controller{handles: handles, opts: opts}, nil
}

// Start applies the initial visibility: main is shown unless the process is
// single-shot or started hidden, the popup starts hidden. In single-shot mode
// the popup is shown as the first action.
func (c *Controller) Start() {
	switch {
	case c.opts.SingleShot:
		c.hideOrLog(Main)
		c.showOrLog(Popup)
	case c.opts.StartHidden:
		c.hideOrLog(Main)
		c.hideOrLog(Popup)
	default:
		c.showOrLog(Main)
		c.hideOrLog(Popup)
	}
	slog.Debug("[DEBUG-WINDOW] initial state applied",
		"main", c.Visibility(Main).String(),
		"popup", c.Visibility(Popup).String(),
		"singleShot", c.opts.SingleShot,
	)
}

// Show makes id visible, unminimises it and gives it focus.
func (c *Controller) Show(id ID) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	h.op.Lock()
	defer h.op.Unlock()

	c.setVisibility(h, Visible)
	h.surface.Show()
	h.surface.Unminimise()
	h.surface.Focus()
	return nil
}

// Hide makes id hidden. Hiding a hidden window is a no-op.
func (c *Controller) Hide(id ID) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	h.op.Lock()
	defer h.op.Unlock()

	if c.setVisibility(h, Hidden) == Visible {
		h.surface.Hide()
	}
	return nil
}

// Minimise asks the OS to minimise id so focus returns to the previously
// active application. The logical visibility is unchanged.
func (c *Controller) Minimise(id ID) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	h.op.Lock()
	defer h.op.Unlock()
	h.surface.Minimise()
	return nil
}

// HandleCloseRequest hides id instead of destroying it and reports whether the
// OS close must be prevented, which is always the case. In single-shot mode
// OnExitRequested runs after the hide.
func (c *Controller) HandleCloseRequest(id ID) (prevent bool) {
	if err := c.Hide(id); err != nil {
		slog.Warn("[DEBUG-WINDOW] close request for unknown window", "window", id, "error", err)
		return true
	}
	slog.Debug("[DEBUG-WINDOW] close request intercepted", "window", id)
	if c.opts.SingleShot && c.opts.OnExitRequested != nil {
		c.opts.OnExitRequested()
	}
	return true
}

// HandleResize treats a resize to zero width and height as a close request.
// Some platforms report a minimised or dismissed window this way.
func (c *Controller) HandleResize(id ID, width, height int) {
	if width != 0 || height != 0 {
		return
	}
	c.HandleCloseRequest(id)
}

// Visibility returns the logical visibility of id. Unknown IDs are Hidden.
func (c *Controller) Visibility(id ID) Visibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[id]; ok {
		return h.visibility
	}
	return Hidden
}

// CloseIntercepted reports whether OS close requests for id become hides.
func (c *Controller) CloseIntercepted(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[id]; ok {
		return h.closeIntercepted
	}
	return false
}

// SingleShot reports whether the controller runs in single-shot mode.
func (c *Controller) SingleShot() bool {
	return c.opts.SingleShot
}

func (c *Controller) lookup(id ID) (*handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWindow, id)
	}
	return h, nil
}

// setVisibility stores to and returns the previous visibility.
func (c *Controller) setVisibility(h *handle, to Visibility) Visibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := h.visibility
	h.visibility = to
	return from
}

func (c *Controller) showOrLog(id ID) {
	if err := c.Show(id); err != nil {
		slog.Error("[DEBUG-WINDOW] show failed", "window", id, "error", err)
	}
}

func (c *Controller) hideOrLog(id ID) {
	if err := c.Hide(id); err != nil {
		slog.Error("[DEBUG-WINDOW] hide failed", "window", id, "error", err)
	}
}
