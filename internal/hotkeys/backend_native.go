//go:build windows || darwin

package hotkeys

import (
	"fmt"

	"quicklaunch/internal/keymap"

	"golang.design/x/hotkey"
)

type keyEvent = hotkey.Event

// combo is one modifier list and key in the library's terms.
type combo struct {
	mods []hotkey.Modifier
	key  hotkey.Key
}

func (c combo) String() string {
	return fmt.Sprintf("%v/%v", c.mods, c.key)
}

var newOSHotkey = func(c combo) osHotkey {
	return hotkey.New(c.mods, c.key)
}

var keyByCode = map[keymap.Code]hotkey.Key{
	"KeyA":       hotkey.KeyA,
	"KeyB":       hotkey.KeyB,
	"KeyC":       hotkey.KeyC,
	"KeyD":       hotkey.KeyD,
	"KeyE":       hotkey.KeyE,
	"KeyF":       hotkey.KeyF,
	"KeyG":       hotkey.KeyG,
	"KeyH":       hotkey.KeyH,
	"KeyI":       hotkey.KeyI,
	"KeyJ":       hotkey.KeyJ,
	"KeyK":       hotkey.KeyK,
	"KeyL":       hotkey.KeyL,
	"KeyM":       hotkey.KeyM,
	"KeyN":       hotkey.KeyN,
	"KeyO":       hotkey.KeyO,
	"KeyP":       hotkey.KeyP,
	"KeyQ":       hotkey.KeyQ,
	"KeyR":       hotkey.KeyR,
	"KeyS":       hotkey.KeyS,
	"KeyT":       hotkey.KeyT,
	"KeyU":       hotkey.KeyU,
	"KeyV":       hotkey.KeyV,
	"KeyW":       hotkey.KeyW,
	"KeyX":       hotkey.KeyX,
	"KeyY":       hotkey.KeyY,
	"KeyZ":       hotkey.KeyZ,
	"Digit0":     hotkey.Key0,
	"Digit1":     hotkey.Key1,
	"Digit2":     hotkey.Key2,
	"Digit3":     hotkey.Key3,
	"Digit4":     hotkey.Key4,
	"Digit5":     hotkey.Key5,
	"Digit6":     hotkey.Key6,
	"Digit7":     hotkey.Key7,
	"Digit8":     hotkey.Key8,
	"Digit9":     hotkey.Key9,
	"F1":         hotkey.KeyF1,
	"F2":         hotkey.KeyF2,
	"F3":         hotkey.KeyF3,
	"F4":         hotkey.KeyF4,
	"F5":         hotkey.KeyF5,
	"F6":         hotkey.KeyF6,
	"F7":         hotkey.KeyF7,
	"F8":         hotkey.KeyF8,
	"F9":         hotkey.KeyF9,
	"F10":        hotkey.KeyF10,
	"F11":        hotkey.KeyF11,
	"F12":        hotkey.KeyF12,
	"F13":        hotkey.KeyF13,
	"F14":        hotkey.KeyF14,
	"F15":        hotkey.KeyF15,
	"F16":        hotkey.KeyF16,
	"F17":        hotkey.KeyF17,
	"F18":        hotkey.KeyF18,
	"F19":        hotkey.KeyF19,
	"F20":        hotkey.KeyF20,
	"Space":      hotkey.KeySpace,
	"Enter":      hotkey.KeyReturn,
	"Escape":     hotkey.KeyEscape,
	"Tab":        hotkey.KeyTab,
	"Delete":     hotkey.KeyDelete,
	"ArrowLeft":  hotkey.KeyLeft,
	"ArrowRight": hotkey.KeyRight,
	"ArrowUp":    hotkey.KeyUp,
	"ArrowDown":  hotkey.KeyDown,
}

// platformKey translates b into the library's modifier list and key.
func platformKey(b keymap.Binding) (combo, error) {
	key, ok := keyByCode[b.Code()]
	if !ok {
		return combo{}, fmt.Errorf("key %q is not supported on this platform", string(b.Code()))
	}
	names := b.Modifiers().List()
	if len(names) == 0 {
		return combo{}, keymap.ErrNoModifier
	}
	mods := make([]hotkey.Modifier, 0, len(names))
	for _, name := range names {
		mod, ok := modifierMap[name]
		if !ok {
			return combo{}, fmt.Errorf("modifier %q is not supported on this platform", string(name))
		}
		mods = append(mods, mod)
	}
	return combo{mods: mods, key: key}, nil
}
