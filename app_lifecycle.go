package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"quicklaunch/internal/config"
	"quicklaunch/internal/ipc"
	"quicklaunch/internal/launcher"

	"github.com/gen2brain/beeep"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...interface{})
	Infof(context.Context, string, ...interface{})
	Errorf(context.Context, string, ...interface{})
}

type wailsRuntimeLogger struct{}

func formatRuntimeLogMessage(message string, args ...interface{}) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Warn(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Info(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Error(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

var (
	runtimeEventsEmitFn                            = runtime.EventsEmit
	runtimeEventsOnFn                              = runtime.EventsOn
	runtimeLogger                 appRuntimeLogger = wailsRuntimeLogger{}
	runtimeQuitFn                                  = runtime.Quit
	runtimeWindowShowFn                            = runtime.WindowShow
	runtimeWindowHideFn                            = runtime.WindowHide
	runtimeWindowMinimiseFn                        = runtime.WindowMinimise
	runtimeWindowUnminimiseFn                      = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn                  = runtime.WindowSetAlwaysOnTop
	runtimeWindowSetSizeFn                         = runtime.WindowSetSize
	runtimeWindowCenterFn                          = runtime.WindowCenter
	newActivationServerFn                          = ipc.NewServer
	notifyFn                                       = beeep.Notify
	osExitFn                                       = os.Exit
)

const notificationTitle = "quicklaunch"

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)
	a.subscribeFrontendEvents(ctx)

	for _, message := range config.ConsumeDefaultPathWarnings() {
		runtimeLogger.Warningf(ctx, "%s", message)
	}

	if err := a.engine.Start(); err != nil {
		a.failRun(ctx, "startup failed", err)
		return
	}
	if a.settings.SingleShot {
		runtimeLogger.Infof(ctx, "single-shot popup opened, hotkey %s left to the background instance", a.engine.Binding())
		return
	}
	runtimeLogger.Infof(ctx, "global hotkey registered: %s", a.engine.Binding())

	a.activation = newActivationServerFn("", a)
	if err := a.activation.Start(); err != nil {
		// Activation is a convenience path; the hotkey still works without it.
		runtimeLogger.Warningf(ctx, "activation server failed: %v", err)
		a.activation = nil
		return
	}
	runtimeLogger.Infof(ctx, "activation server listening: %s", a.activation.Endpoint())
}

// failRun reports an unrecoverable error to the user and stops the runtime.
// runApp turns the recorded error into exit status 1.
func (a *App) failRun(ctx context.Context, what string, err error) {
	a.setFatal(err)
	runtimeLogger.Errorf(ctx, "%s: %v", what, err)
	if notifyErr := notifyFn(notificationTitle, err.Error(), ""); notifyErr != nil {
		slog.Warn("[DEBUG-LIFECYCLE] desktop notification failed", "error", notifyErr)
	}
	a.quitting.Store(true)
	if ctx == nil {
		osExitFn(1)
		return
	}
	runtimeQuitFn(ctx)
}

// hotkeyLost is called when the live hotkey stopped delivering presses after
// startup. The launcher cannot be reached anymore, so the run ends.
func (a *App) hotkeyLost(err error) {
	a.failRun(a.runtimeContext(), "hotkey lost", fmt.Errorf("%w: %w", launcher.ErrHotkeyUnavailable, err))
}

func (a *App) domReady(ctx context.Context) {
	runtimeEventsEmitFn(ctx, eventWindowView, viewChangedEvent{View: string(a.host.currentView())})
}

// beforeClose turns a native close into a hide of the rendered view, except
// while an intentional quit is in progress.
func (a *App) beforeClose(_ context.Context) (prevent bool) {
	if a.quitting.Load() {
		return false
	}
	return a.windows.HandleCloseRequest(a.host.currentView())
}

func (a *App) shutdown(_ context.Context) {
	logCtx := a.runtimeContext()
	for _, off := range a.unsubscribe {
		off()
	}
	a.unsubscribe = nil

	if a.activation != nil {
		if err := a.activation.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "activation server stop failed: %v", err)
		}
	}
	a.engine.Close()
	a.setRuntimeContext(nil)
}

// exitProcess is the engine's exit hook. Code 0 quits the Wails runtime so
// shutdown hooks run; any other code, or a missing runtime, exits directly.
func (a *App) exitProcess(code int) {
	ctx := a.runtimeContext()
	if code != 0 || ctx == nil {
		osExitFn(code)
		return
	}
	a.quitting.Store(true)
	runtimeQuitFn(ctx)
}

// Quit exits the application.
func (a *App) Quit() {
	slog.Info("[DEBUG-LIFECYCLE] quit requested")
	a.engine.Quit()
}
