package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"quicklaunch/internal/window"
)

const (
	// eventWindowView is emitted to the frontend with the view to render.
	eventWindowView = "window:view"
	// eventWindowResized is emitted by the frontend as {view, width, height}.
	eventWindowResized = "window:resized"
)

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Warn("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

func (a *App) subscribeFrontendEvents(ctx context.Context) {
	off := runtimeEventsOnFn(ctx, eventWindowResized, func(data ...interface{}) {
		a.handleResizeEvent(data...)
	})
	a.unsubscribe = append(a.unsubscribe, off)
}

// resizeEvent is the decoded window:resized payload.
type resizeEvent struct {
	view   window.ID
	width  int
	height int
}

func (a *App) handleResizeEvent(data ...interface{}) {
	evt, err := decodeResizeEvent(data)
	if err != nil {
		slog.Warn("[EVENT] window:resized: unexpected payload", "error", err)
		return
	}
	a.windows.HandleResize(evt.view, evt.width, evt.height)
}

// decodeResizeEvent accepts the first event argument as a JSON object. Numbers
// arrive as float64 from the webview bridge.
func decodeResizeEvent(data []interface{}) (resizeEvent, error) {
	if len(data) == 0 {
		return resizeEvent{}, errors.New("missing payload")
	}
	fields, ok := data[0].(map[string]interface{})
	if !ok {
		return resizeEvent{}, fmt.Errorf("payload type %T", data[0])
	}
	view, _ := fields["view"].(string)
	if view == "" {
		view = string(window.Popup)
	}
	width, err := toDimension(fields["width"])
	if err != nil {
		return resizeEvent{}, fmt.Errorf("width: %w", err)
	}
	height, err := toDimension(fields["height"])
	if err != nil {
		return resizeEvent{}, fmt.Errorf("height: %w", err)
	}
	return resizeEvent{view: window.ID(view), width: width, height: height}, nil
}

func toDimension(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || math.IsNaN(n) || n > math.MaxInt32 {
			return 0, fmt.Errorf("out of range: %v", n)
		}
		return int(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("out of range: %d", n)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("type %T", v)
	}
}
