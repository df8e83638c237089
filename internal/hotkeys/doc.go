// Package hotkeys registers the launcher's single system-wide shortcut and
// delivers presses to a callback on a dedicated goroutine.
package hotkeys
