// Package keymap models the global shortcut a user binds to the launcher
// popup: a set of modifiers plus one symbolic key code.
package keymap

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownKey is returned for key codes outside the supported set.
	ErrUnknownKey = errors.New("unknown key code")
	// ErrUnknownModifier is returned for unrecognized modifier names or bits.
	ErrUnknownModifier = errors.New("unknown modifier")
	// ErrNoModifier is returned when a binding carries no modifier at all.
	// A bare key would swallow that key system-wide.
	ErrNoModifier = errors.New("hotkey requires at least one modifier")
)

// Modifier is one modifier key of a binding.
type Modifier string

const (
	Ctrl  Modifier = "Ctrl"
	Shift Modifier = "Shift"
	Alt   Modifier = "Alt"
	Meta  Modifier = "Meta"
)

// canonicalModifierOrder is the order used for normalized strings and files.
var canonicalModifierOrder = []Modifier{Ctrl, Shift, Alt, Meta}

var modifierByName = map[string]Modifier{
	"CTRL":    Ctrl,
	"CONTROL": Ctrl,
	"SHIFT":   Shift,
	"ALT":     Alt,
	"OPTION":  Alt,
	"META":    Meta,
	"SUPER":   Meta,
	"WIN":     Meta,
	"CMD":     Meta,
}

// ModifierSet is a set of modifiers.
type ModifierSet struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

// Has reports whether m is part of the set.
func (s ModifierSet) Has(m Modifier) bool {
	switch m {
	case Ctrl:
		return s.Ctrl
	case Shift:
		return s.Shift
	case Alt:
		return s.Alt
	case Meta:
		return s.Meta
	}
	return false
}

// Empty reports whether no modifier is set.
func (s ModifierSet) Empty() bool {
	return !s.Ctrl && !s.Shift && !s.Alt && !s.Meta
}

// List returns the modifiers in canonical order.
func (s ModifierSet) List() []Modifier {
	out := make([]Modifier, 0, len(canonicalModifierOrder))
	for _, m := range canonicalModifierOrder {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *ModifierSet) add(m Modifier) {
	switch m {
	case Ctrl:
		s.Ctrl = true
	case Shift:
		s.Shift = true
	case Alt:
		s.Alt = true
	case Meta:
		s.Meta = true
	}
}

// ParseModifier resolves a modifier name case-insensitively.
func ParseModifier(name string) (Modifier, error) {
	m, ok := modifierByName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModifier, name)
	}
	return m, nil
}

// ModifiersFromNames builds a set from modifier names. Duplicates collapse.
func ModifiersFromNames(names []string) (ModifierSet, error) {
	var set ModifierSet
	for _, name := range names {
		m, err := ParseModifier(name)
		if err != nil {
			return ModifierSet{}, err
		}
		set.add(m)
	}
	return set, nil
}

// Binding is a validated global shortcut.
// Construct via New, Parse, FromMask or Default to guarantee validity.
type Binding struct {
	modifiers ModifierSet
	code      Code
}

// New validates and builds a binding.
func New(modifiers ModifierSet, code Code) (Binding, error) {
	if modifiers.Empty() {
		return Binding{}, ErrNoModifier
	}
	if !code.Valid() {
		return Binding{}, fmt.Errorf("%w: %q", ErrUnknownKey, string(code))
	}
	return Binding{modifiers: modifiers, code: code}, nil
}

// Default returns the binding used when no usable configuration exists.
func Default() Binding {
	return Binding{modifiers: ModifierSet{Ctrl: true, Shift: true}, code: KeyG}
}

// Modifiers returns the modifier set.
func (b Binding) Modifiers() ModifierSet { return b.modifiers }

// Code returns the key code.
func (b Binding) Code() Code { return b.code }

// IsZero reports whether b is the zero value (no binding).
func (b Binding) IsZero() bool { return b == Binding{} }

// Equal reports whether two bindings name the same shortcut.
func (b Binding) Equal(other Binding) bool { return b == other }

// String returns the canonical human-readable form, for example "Ctrl+Shift+G".
func (b Binding) String() string {
	if b.IsZero() {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, m := range b.modifiers.List() {
		parts = append(parts, string(m))
	}
	parts = append(parts, b.code.Label())
	return strings.Join(parts, "+")
}

// ModifierNames returns modifier names in canonical order.
func (b Binding) ModifierNames() []string {
	mods := b.modifiers.List()
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = string(m)
	}
	return out
}

// Parse parses strings like "Ctrl+Shift+G", "Alt+F4" or "Meta+KeyK".
// The last token is the key; every preceding token must be a modifier.
func Parse(spec string) (Binding, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Binding{}, errors.New("hotkey spec is empty")
	}
	parts := strings.Split(raw, "+")
	if len(parts) < 2 {
		return Binding{}, fmt.Errorf("%w: %q", ErrNoModifier, raw)
	}

	var mods ModifierSet
	for _, token := range parts[:len(parts)-1] {
		m, err := ParseModifier(token)
		if err != nil {
			return Binding{}, fmt.Errorf("parse hotkey %q: %w", raw, err)
		}
		mods.add(m)
	}

	code, err := ParseCode(parts[len(parts)-1])
	if err != nil {
		return Binding{}, fmt.Errorf("parse hotkey %q: %w", raw, err)
	}
	return New(mods, code)
}

// Modifier bit values used by the UI command surface.
const (
	MaskAlt   uint32 = 0x0001
	MaskCtrl  uint32 = 0x0008
	MaskMeta  uint32 = 0x0040
	MaskShift uint32 = 0x0200
	// MaskSuper is accepted as an alias of MaskMeta.
	MaskSuper uint32 = 0x2000
)

const knownMaskBits = MaskAlt | MaskCtrl | MaskMeta | MaskShift | MaskSuper

// FromMask builds a binding from a modifier bitmask and a key code string.
// Unrecognized bits are rejected rather than dropped.
func FromMask(mask uint32, code string) (Binding, error) {
	if unknown := mask &^ knownMaskBits; unknown != 0 {
		return Binding{}, fmt.Errorf("%w: bits 0x%x", ErrUnknownModifier, unknown)
	}
	mods := ModifierSet{
		Ctrl:  mask&MaskCtrl != 0,
		Shift: mask&MaskShift != 0,
		Alt:   mask&MaskAlt != 0,
		Meta:  mask&(MaskMeta|MaskSuper) != 0,
	}
	parsed, err := ParseCode(code)
	if err != nil {
		return Binding{}, err
	}
	return New(mods, parsed)
}

// Mask returns the modifier bitmask of b. Meta is always reported as MaskMeta.
func (b Binding) Mask() uint32 {
	var mask uint32
	if b.modifiers.Ctrl {
		mask |= MaskCtrl
	}
	if b.modifiers.Shift {
		mask |= MaskShift
	}
	if b.modifiers.Alt {
		mask |= MaskAlt
	}
	if b.modifiers.Meta {
		mask |= MaskMeta
	}
	return mask
}

// SupportedCodes returns every accepted key code, sorted.
func SupportedCodes() []Code {
	out := make([]Code, 0, len(codeLabels))
	for c := range codeLabels {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
