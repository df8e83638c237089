package keymap

import (
	"fmt"
	"strings"
)

// Code is a symbolic key identifier using KeyboardEvent.code names.
type Code string

const (
	KeyG       Code = "KeyG"
	Space      Code = "Space"
	Enter      Code = "Enter"
	Escape     Code = "Escape"
	Tab        Code = "Tab"
	Delete     Code = "Delete"
	ArrowLeft  Code = "ArrowLeft"
	ArrowRight Code = "ArrowRight"
	ArrowUp    Code = "ArrowUp"
	ArrowDown  Code = "ArrowDown"
)

// codeLabels maps every supported code to its short display label.
var codeLabels = buildCodeLabels()

// codeAliases maps upper-cased user spellings to codes.
var codeAliases = buildCodeAliases()

func buildCodeLabels() map[Code]string {
	labels := map[Code]string{
		Space:      "Space",
		Enter:      "Enter",
		Escape:     "Escape",
		Tab:        "Tab",
		Delete:     "Delete",
		ArrowLeft:  "Left",
		ArrowRight: "Right",
		ArrowUp:    "Up",
		ArrowDown:  "Down",
	}
	for r := 'A'; r <= 'Z'; r++ {
		labels[Code("Key"+string(r))] = string(r)
	}
	for r := '0'; r <= '9'; r++ {
		labels[Code("Digit"+string(r))] = string(r)
	}
	for i := 1; i <= 20; i++ {
		name := fmt.Sprintf("F%d", i)
		labels[Code(name)] = name
	}
	return labels
}

func buildCodeAliases() map[string]Code {
	aliases := map[string]Code{
		"RETURN": Enter,
		"ESC":    Escape,
		"DEL":    Delete,
		"LEFT":   ArrowLeft,
		"RIGHT":  ArrowRight,
		"UP":     ArrowUp,
		"DOWN":   ArrowDown,
	}
	for c, label := range codeLabels {
		aliases[strings.ToUpper(string(c))] = c
		aliases[strings.ToUpper(label)] = c
	}
	return aliases
}

// ParseCode resolves a key name. Accepts KeyboardEvent.code names ("KeyG"),
// bare labels ("G", "5", "F12") and a few common aliases ("Return", "Esc").
func ParseCode(name string) (Code, error) {
	trimmed := strings.TrimSpace(name)
	if c, ok := codeAliases[strings.ToUpper(trimmed)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// Valid reports whether c is a supported code.
func (c Code) Valid() bool {
	_, ok := codeLabels[c]
	return ok
}

// Label returns the short display label ("G" for KeyG).
func (c Code) Label() string {
	if label, ok := codeLabels[c]; ok {
		return label
	}
	return string(c)
}

// Letter returns the letter for KeyA..KeyZ.
func (c Code) Letter() (rune, bool) {
	s := string(c)
	if len(s) == 4 && strings.HasPrefix(s, "Key") && s[3] >= 'A' && s[3] <= 'Z' {
		return rune(s[3]), true
	}
	return 0, false
}

// Digit returns the digit for Digit0..Digit9.
func (c Code) Digit() (rune, bool) {
	s := string(c)
	if len(s) == 6 && strings.HasPrefix(s, "Digit") && s[5] >= '0' && s[5] <= '9' {
		return rune(s[5]), true
	}
	return 0, false
}

// FunctionKey returns n for F1..F20.
func (c Code) FunctionKey() (int, bool) {
	s := string(c)
	if !strings.HasPrefix(s, "F") || !c.Valid() {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(s, "F%d", &n); err != nil {
		return 0, false
	}
	return n, true
}
