package main

import (
	"context"
	"log/slog"
	"sync"

	"quicklaunch/internal/window"
)

// viewSize is the native window size used while a view is displayed.
type viewSize struct {
	width  int
	height int
}

var viewSizes = map[window.ID]viewSize{
	window.Main:  {width: 520, height: 380},
	window.Popup: {width: 640, height: 96},
}

// viewChangedEvent tells the frontend which view to render.
type viewChangedEvent struct {
	View string `json:"view"`
}

// windowHost multiplexes the main and popup views onto the single native
// window Wails provides. The native window is visible while at least one view
// is shown; the most recently shown view is rendered.
//
// Wails runtime calls are made outside mu.
type windowHost struct {
	ctxFn func() context.Context

	mu      sync.Mutex
	shown   map[window.ID]bool
	current window.ID
}

func newWindowHost(ctxFn func() context.Context) *windowHost {
	return &windowHost{
		ctxFn:   ctxFn,
		shown:   map[window.ID]bool{},
		current: window.Main,
	}
}

func (h *windowHost) surface(view window.ID) window.Surface {
	return viewSurface{host: h, view: view}
}

// currentView returns the rendered view.
func (h *windowHost) currentView() window.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *windowHost) runtimeContext(op string, view window.ID) context.Context {
	ctx := h.ctxFn()
	if ctx == nil {
		slog.Warn("[DEBUG-WINDOW] window operation dropped because runtime context is nil",
			"op", op, "view", string(view))
	}
	return ctx
}

func (h *windowHost) show(view window.ID) {
	ctx := h.runtimeContext("show", view)
	if ctx == nil {
		return
	}
	h.mu.Lock()
	h.shown[view] = true
	switched := h.current != view
	h.current = view
	h.mu.Unlock()

	if size, ok := viewSizes[view]; ok && switched {
		runtimeWindowSetSizeFn(ctx, size.width, size.height)
		runtimeWindowCenterFn(ctx)
	}
	runtimeEventsEmitFn(ctx, eventWindowView, viewChangedEvent{View: string(view)})
	runtimeWindowShowFn(ctx)
}

func (h *windowHost) hide(view window.ID) {
	ctx := h.runtimeContext("hide", view)
	if ctx == nil {
		return
	}
	h.mu.Lock()
	h.shown[view] = false
	var next window.ID
	if h.current == view {
		for _, other := range []window.ID{window.Main, window.Popup} {
			if other != view && h.shown[other] {
				next = other
			}
		}
		if next != "" {
			h.current = next
		}
	}
	rendered := h.current == view
	h.mu.Unlock()

	switch {
	case next != "":
		if size, ok := viewSizes[next]; ok {
			runtimeWindowSetSizeFn(ctx, size.width, size.height)
		}
		runtimeEventsEmitFn(ctx, eventWindowView, viewChangedEvent{View: string(next)})
	case rendered:
		runtimeWindowHideFn(ctx)
	}
}

// ifRendered runs fn only while view is the rendered view.
func (h *windowHost) ifRendered(op string, view window.ID, fn func(ctx context.Context)) {
	ctx := h.runtimeContext(op, view)
	if ctx == nil {
		return
	}
	h.mu.Lock()
	rendered := h.current == view
	h.mu.Unlock()
	if !rendered {
		slog.Debug("[DEBUG-WINDOW] operation skipped for background view", "op", op, "view", string(view))
		return
	}
	fn(ctx)
}

// viewSurface is the window.Surface of one view.
type viewSurface struct {
	host *windowHost
	view window.ID
}

func (s viewSurface) Show() { s.host.show(s.view) }

func (s viewSurface) Hide() { s.host.hide(s.view) }

func (s viewSurface) Minimise() {
	s.host.ifRendered("minimise", s.view, runtimeWindowMinimiseFn)
}

func (s viewSurface) Unminimise() {
	s.host.ifRendered("unminimise", s.view, runtimeWindowUnminimiseFn)
}

// Focus raises the window above the previously active application.
func (s viewSurface) Focus() {
	s.host.ifRendered("focus", s.view, func(ctx context.Context) {
		runtimeWindowSetAlwaysOnTopFn(ctx, true)
		runtimeWindowSetAlwaysOnTopFn(ctx, false)
	})
}
