package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"quicklaunch/internal/config"
	"quicklaunch/internal/hotkeys"
	"quicklaunch/internal/inject"
	"quicklaunch/internal/ipc"
	"quicklaunch/internal/launcher"
	"quicklaunch/internal/sessionlog"
	"quicklaunch/internal/window"
)

// Construction seams.
var (
	newHotkeysFn  = func(onLost func(error)) launcher.Hotkeys { return hotkeys.NewRegistry(onLost) }
	newInjectorFn = inject.New
)

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	settings launcher.Settings
	store    *config.Store
	journal  *sessionlog.Journal

	host    *windowHost
	windows *window.Controller
	engine  *launcher.Engine

	activation *ipc.Server

	// quitting lets OnBeforeClose pass an intentional quit through.
	quitting atomic.Bool

	fatalMu  sync.Mutex
	fatalErr error

	unsubscribe []func()
}

// NewApp wires the launcher components. Nothing touches the OS until startup.
func NewApp(settings launcher.Settings, store *config.Store, journal *sessionlog.Journal) (*App, error) {
	if store == nil {
		return nil, errors.New("config store is required")
	}
	if journal == nil {
		journal = sessionlog.NewMemory()
	}
	injector, err := newInjectorFn(settings.Injector)
	if err != nil {
		return nil, fmt.Errorf("injector: %w", err)
	}

	a := &App{
		settings: settings,
		store:    store,
		journal:  journal,
	}
	a.host = newWindowHost(a.runtimeContext)

	a.windows, err = window.NewController(map[window.ID]window.Surface{
		window.Main:  a.host.surface(window.Main),
		window.Popup: a.host.surface(window.Popup),
	}, window.Options{
		SingleShot:      settings.SingleShot,
		StartHidden:     settings.StartHidden,
		OnExitRequested: a.requestExit,
	})
	if err != nil {
		return nil, err
	}

	a.engine, err = launcher.New(launcher.Deps{
		Settings: settings,
		Windows:  a.windows,
		Injector: injector,
		Hotkeys:  newHotkeysFn(a.hotkeyLost),
		Store:    store,
		Exit:     a.exitProcess,
		Emit:     a.emitRuntimeEvent,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// requestExit is wired before the engine exists, so it resolves it lazily.
func (a *App) requestExit() {
	if a.engine != nil {
		a.engine.RequestExit()
	}
}

func (a *App) setFatal(err error) {
	a.fatalMu.Lock()
	if a.fatalErr == nil {
		a.fatalErr = err
	}
	a.fatalMu.Unlock()
}

// fatalError returns the error that stopped the run, if any.
func (a *App) fatalError() error {
	a.fatalMu.Lock()
	defer a.fatalMu.Unlock()
	return a.fatalErr
}
