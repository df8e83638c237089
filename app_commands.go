package main

import (
	"fmt"
	"log/slog"

	"quicklaunch/internal/config"
	"quicklaunch/internal/ipc"
	"quicklaunch/internal/keymap"
	"quicklaunch/internal/sessionlog"
	"quicklaunch/internal/window"
)

// Selected is called by the popup view with the confirmed value.
func (a *App) Selected(value string) {
	a.engine.OnValueConfirmed(value)
}

// SetHotkey replaces the global hotkey. modifiers is a bitmask of
// keymap.MaskAlt, MaskCtrl, MaskMeta, MaskShift and MaskSuper; code is a
// KeyboardEvent.code name. On failure the previous hotkey stays active.
func (a *App) SetHotkey(modifiers uint32, code string) error {
	requested, err := keymap.FromMask(modifiers, code)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}
	if _, err := a.engine.OnRebindRequested(requested.Modifiers(), requested.Code()); err != nil {
		slog.Warn("[DEBUG-HOTKEY] rebind rejected", "requested", requested.String(), "error", err)
		return err
	}
	return nil
}

// GetConfig returns the active hotkey in its persisted form.
func (a *App) GetConfig() config.File {
	return config.FileFromBinding(a.engine.Binding())
}

// GetConfigPath returns the config file location.
func (a *App) GetConfigPath() string {
	return a.store.Path()
}

// GetSessionLog returns recent warnings and errors, oldest first.
func (a *App) GetSessionLog() []sessionlog.Entry {
	return a.journal.Entries()
}

// ShowMain shows the settings view.
func (a *App) ShowMain() error {
	return a.windows.Show(window.Main)
}

// HideMain hides the settings view.
func (a *App) HideMain() error {
	return a.windows.Hide(window.Main)
}

// ShowPopup shows the popup, as the hotkey would.
func (a *App) ShowPopup() error {
	return a.windows.Show(window.Popup)
}

// HidePopup dismisses the popup without injecting.
func (a *App) HidePopup() error {
	if err := a.windows.Hide(window.Popup); err != nil {
		return err
	}
	if a.settings.SingleShot {
		a.engine.RequestExit()
	}
	return nil
}

// Handle serves activation requests from other launcher processes.
func (a *App) Handle(req ipc.Request) ipc.Response {
	var err error
	switch req.Command {
	case ipc.CommandShowPopup:
		a.engine.OnHotkeyTriggered()
	case ipc.CommandHidePopup:
		err = a.HidePopup()
	case ipc.CommandShowMain:
		err = a.ShowMain()
	case ipc.CommandQuit:
		// The server waits for this handler on shutdown, so quit after the
		// response has been written.
		go a.Quit()
	default:
		err = fmt.Errorf("%w: %q", ipc.ErrUnknownCommand, req.Command)
	}
	if err != nil {
		return ipc.Response{Error: err.Error()}
	}
	return ipc.Response{OK: true}
}
