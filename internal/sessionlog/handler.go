// Package sessionlog keeps a per-run journal of warning and error log records
// so the settings window can show why a rebind or an injection failed.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"runtime/debug"
	"strings"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	// Source is the component tag of the message, for example "hotkey" for
	// "[DEBUG-HOTKEY] ...", or the slog group when the message has no tag.
	Source string `json:"source"`
}

// EntryCallback receives captured records. Seq is assigned by the journal.
type EntryCallback func(Entry)

const timestampLayout = "20060102150405"

var componentTag = regexp.MustCompile(`^\[(?:DEBUG|WARN|ERROR)-([A-Z]+)\]\s*`)

// TeeHandler forwards every record to base and hands records at or above
// minLevel to a callback.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
}

// NewTeeHandler wraps base. A nil callback only delegates.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled defers to base; minLevel gates only the callback.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards record to base, then invokes the callback regardless of the
// base result. A panicking callback is reported on stderr, never through slog.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.callback != nil && record.Level >= h.minLevel {
		entry := entryFromRecord(record, h.group)
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[session-log] callback panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.callback(entry)
		}()
	}
	return err
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
	}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TeeHandler{
		base:     h.base.WithGroup(name),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    group,
	}
}

func entryFromRecord(record slog.Record, group string) Entry {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := record.Message
	source := group
	if m := componentTag.FindStringSubmatch(msg); m != nil {
		source = strings.ToLower(m[1])
		msg = msg[len(m[0]):]
	}
	if errAttr, ok := errorAttr(record); ok {
		msg += ": " + errAttr
	}
	return Entry{
		Timestamp: ts.Format(timestampLayout),
		Level:     levelName(record.Level),
		Message:   msg,
		Source:    source,
	}
}

// errorAttr returns the value of the first "error" attribute.
func errorAttr(record slog.Record) (string, bool) {
	var value string
	var found bool
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == "error" {
			value = a.Value.String()
			found = true
			return false
		}
		return true
	})
	return value, found
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
