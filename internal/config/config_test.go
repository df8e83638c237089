package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quicklaunch/internal/keymap"
	"quicklaunch/internal/testutil"
)

func newStoreForTest(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), appDirName, configFileName))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func mustParse(t *testing.T, spec string) keymap.Binding {
	t.Helper()
	b, err := keymap.Parse(spec)
	if err != nil {
		t.Fatalf("keymap.Parse(%q) error = %v", spec, err)
	}
	return b
}

func TestStoreLoadMissingFileReturnsDefault(t *testing.T) {
	store := newStoreForTest(t)

	got := store.Load()
	if !got.Equal(keymap.Default()) {
		t.Fatalf("Load() = %v, want default %v", got, keymap.Default())
	}
	if _, err := os.Stat(store.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load() must not create the file, stat err = %v", err)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	tests := []string{
		"Ctrl+Shift+G",
		"Alt+F4",
		"Ctrl+Alt+Meta+Space",
		"Shift+Digit9",
	}
	for _, spec := range tests {
		t.Run(spec, func(t *testing.T) {
			store := newStoreForTest(t)
			want := mustParse(t, spec)
			if err := store.Save(want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got := store.Load()
			if !got.Equal(want) {
				t.Fatalf("Load() = %v, want %v", got, want)
			}
		})
	}
}

func TestSaveWritesReadableSchema(t *testing.T) {
	store := newStoreForTest(t)
	if err := store.Save(mustParse(t, "Ctrl+Shift+K")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text := string(raw)
	for _, want := range []string{"modifiers:", "- Ctrl", "- Shift", "code: KeyK"} {
		if !strings.Contains(text, want) {
			t.Errorf("config file missing %q:\n%s", want, text)
		}
	}
}

func TestSaveOverwritesPreviousBinding(t *testing.T) {
	store := newStoreForTest(t)
	if err := store.Save(mustParse(t, "Ctrl+A")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(mustParse(t, "Alt+B")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.Load(); got.String() != "Alt+B" {
		t.Fatalf("Load() = %v, want Alt+B", got)
	}
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("config dir has %d entries, want only the config file", len(entries))
	}
}

func TestLoadMalformedFileFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "modifiers: [Ctrl\ncode: {"},
		{name: "unknown modifier", content: "modifiers: [Hyper]\ncode: KeyG\n"},
		{name: "unknown key", content: "modifiers: [Ctrl]\ncode: Numpad5\n"},
		{name: "no modifiers", content: "modifiers: []\ncode: KeyG\n"},
		{name: "wrong type", content: "modifiers: 12\ncode: KeyG\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), configFileName)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			got, err := Load(path)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Load() error = %v, want ErrParse", err)
			}
			if !got.Equal(keymap.Default()) {
				t.Fatalf("Load() = %v, want default", got)
			}
		})
	}
}

func TestStoreLoadLogsParseFailure(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	store := newStoreForTest(t)
	if err := os.WriteFile(store.Path(), []byte("code: ["), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got := store.Load()
	if !got.Equal(keymap.Default()) {
		t.Fatalf("Load() = %v, want default", got)
	}
	if !strings.Contains(logBuf.String(), "[WARN-CONFIG]") {
		t.Fatalf("expected parse warning in log, got %q", logBuf.String())
	}
}

func TestLoadEmptyFileReturnsDefaultWithoutError(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte("\n  \n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Equal(keymap.Default()) {
		t.Fatalf("Load() = %v, want default", got)
	}
}

func TestLoadOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte(strings.Repeat("#", int(maxConfigFileBytes)+1)), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := Load(path)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Load() error = %v, want ErrParse", err)
	}
	if !got.Equal(keymap.Default()) {
		t.Fatalf("Load() = %v, want default", got)
	}
}

func TestSaveRenameFailureReturnsErrWrite(t *testing.T) {
	origRename := renameFn
	t.Cleanup(func() { renameFn = origRename })
	renameFn = func(string, string) error { return errors.New("disk full") }

	store := newStoreForTest(t)
	err := store.Save(keymap.Default())
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("Save() error = %v, want ErrWrite", err)
	}
	if _, statErr := os.Stat(store.Path()); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("failed save must not leave a config file, stat err = %v", statErr)
	}
	entries, readErr := os.ReadDir(filepath.Dir(store.Path()))
	if readErr != nil {
		t.Fatalf("ReadDir() error = %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("temp file was not cleaned up: %d entries", len(entries))
	}
}

func TestSaveRejectsZeroBinding(t *testing.T) {
	store := newStoreForTest(t)
	if err := store.Save(keymap.Binding{}); !errors.Is(err, ErrWrite) {
		t.Fatalf("Save(zero) error = %v, want ErrWrite", err)
	}
}

func TestDefaultPathFallback(t *testing.T) {
	origConfigDir := userConfigDirFn
	origHomeDir := userHomeDirFn
	t.Cleanup(func() {
		userConfigDirFn = origConfigDir
		userHomeDirFn = origHomeDir
		ConsumeDefaultPathWarnings()
	})

	t.Run("user config dir", func(t *testing.T) {
		base := t.TempDir()
		userConfigDirFn = func() (string, error) { return base, nil }
		want := filepath.Join(base, appDirName, configFileName)
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("home fallback", func(t *testing.T) {
		home := t.TempDir()
		userConfigDirFn = func() (string, error) { return "", errors.New("unset") }
		userHomeDirFn = func() (string, error) { return home, nil }
		want := filepath.Join(home, ".config", appDirName, configFileName)
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
		if warnings := ConsumeDefaultPathWarnings(); len(warnings) != 0 {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
	})

	t.Run("temp fallback records warning", func(t *testing.T) {
		userConfigDirFn = func() (string, error) { return "", errors.New("unset") }
		userHomeDirFn = func() (string, error) { return "", errors.New("no home") }
		want := filepath.Join(os.TempDir(), appDirName, configFileName)
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
		warnings := ConsumeDefaultPathWarnings()
		if len(warnings) != 1 {
			t.Fatalf("warnings = %v, want exactly one", warnings)
		}
		if again := ConsumeDefaultPathWarnings(); again != nil {
			t.Fatalf("warnings must be cleared after consume, got %v", again)
		}
	})
}

func TestFileBindingConversion(t *testing.T) {
	b := mustParse(t, "Meta+Shift+Enter")
	f := FileFromBinding(b)
	if strings.Join(f.Modifiers, ",") != "Shift,Meta" || f.Code != "Enter" {
		t.Fatalf("FileFromBinding() = %+v", f)
	}
	got, err := f.Binding()
	if err != nil {
		t.Fatalf("Binding() error = %v", err)
	}
	if !got.Equal(b) {
		t.Fatalf("Binding() = %v, want %v", got, b)
	}
}
