package main

import (
	"log/slog"

	"quicklaunch/internal/window"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
)

// menu builds the application menu. Items route through the same commands the
// frontend binds, so visibility rules stay in the window controller.
func (a *App) menu() *menu.Menu {
	appMenu := menu.NewMenu()
	launcherMenu := appMenu.AddSubmenu(appName)
	launcherMenu.AddText("Show Launcher", keys.CmdOrCtrl("space"), func(_ *menu.CallbackData) {
		a.engine.OnHotkeyTriggered()
	})
	launcherMenu.AddText("Settings", keys.CmdOrCtrl(","), func(_ *menu.CallbackData) {
		logMenuError("settings", a.ShowMain())
	})
	launcherMenu.AddText("Hide", keys.CmdOrCtrl("w"), func(_ *menu.CallbackData) {
		a.hideCurrent()
	})
	launcherMenu.AddSeparator()
	launcherMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		a.Quit()
	})
	return appMenu
}

// hideCurrent hides whichever view is rendered.
func (a *App) hideCurrent() {
	if a.host.currentView() == window.Popup {
		logMenuError("hide", a.HidePopup())
		return
	}
	logMenuError("hide", a.HideMain())
}

func logMenuError(item string, err error) {
	if err != nil {
		slog.Warn("[DEBUG-WINDOW] menu action failed", "item", item, "error", err)
	}
}
