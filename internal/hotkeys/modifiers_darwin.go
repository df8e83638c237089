//go:build darwin

package hotkeys

import (
	"quicklaunch/internal/keymap"

	"golang.design/x/hotkey"
)

var modifierMap = map[keymap.Modifier]hotkey.Modifier{
	keymap.Ctrl:  hotkey.ModCtrl,
	keymap.Shift: hotkey.ModShift,
	keymap.Alt:   hotkey.ModOption,
	keymap.Meta:  hotkey.ModCmd,
}
