package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"quicklaunch/internal/keymap"

	"go.yaml.in/yaml/v3"
)

const (
	appDirName     = "quicklaunch"
	configFileName = "config.yaml"

	maxConfigFileBytes int64 = 64 * 1024
)

var (
	// ErrParse marks a config file that exists but could not be decoded or
	// does not describe a valid binding. Load recovers from it with defaults.
	ErrParse = errors.New("config parse failed")
	// ErrWrite marks a failed attempt to persist the binding.
	ErrWrite = errors.New("config write failed")
)

// Test seams.
var (
	userConfigDirFn = os.UserConfigDir
	userHomeDirFn   = os.UserHomeDir
)

// pathWarnings collects fallbacks taken by Dir so the UI can surface them
// once the runtime is up.
var pathWarnings struct {
	sync.Mutex
	pending []string
}

func warnPath(message string) {
	pathWarnings.Lock()
	pathWarnings.pending = append(pathWarnings.pending, message)
	pathWarnings.Unlock()
}

// ConsumeDefaultPathWarnings drains the warnings recorded by Dir.
func ConsumeDefaultPathWarnings() []string {
	pathWarnings.Lock()
	defer pathWarnings.Unlock()
	out := pathWarnings.pending
	pathWarnings.pending = nil
	return out
}

// File is the on-disk schema. The JSON tags serve the UI command surface.
type File struct {
	Modifiers []string `yaml:"modifiers" json:"modifiers"`
	Code      string   `yaml:"code" json:"code"`
}

// FileFromBinding converts b into its persisted form.
func FileFromBinding(b keymap.Binding) File {
	return File{
		Modifiers: b.ModifierNames(),
		Code:      string(b.Code()),
	}
}

// Binding validates f and converts it into a binding.
func (f File) Binding() (keymap.Binding, error) {
	mods, err := keymap.ModifiersFromNames(f.Modifiers)
	if err != nil {
		return keymap.Binding{}, err
	}
	code, err := keymap.ParseCode(f.Code)
	if err != nil {
		return keymap.Binding{}, err
	}
	return keymap.New(mods, code)
}

// Dir returns the per-user application directory. It tries
// os.UserConfigDir, then ~/.config, and finally os.TempDir. The last one does
// not survive reboots and is reported through ConsumeDefaultPathWarnings.
func Dir() string {
	if base, err := userConfigDirFn(); err == nil && strings.TrimSpace(base) != "" {
		return filepath.Join(base, appDirName)
	} else if home, homeErr := userHomeDirFn(); homeErr == nil {
		return filepath.Join(home, ".config", appDirName)
	} else {
		slog.Warn("[WARN-CONFIG] no user config or home directory, falling back to temp dir",
			"error", errors.Join(err, homeErr))
		warnPath("The launcher could not find a user config directory and is using the temp directory. Hotkey changes may be lost on reboot.")
	}
	return filepath.Join(os.TempDir(), appDirName)
}

// DefaultPath resolves the config file path inside Dir().
func DefaultPath() string {
	return filepath.Join(Dir(), configFileName)
}

// Load reads the binding stored at path.
// The returned binding is always usable: a missing or empty file yields the
// default with a nil error, a broken file yields the default with an error
// wrapping ErrParse.
func Load(path string) (keymap.Binding, error) {
	if strings.TrimSpace(path) == "" {
		return keymap.Default(), errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return keymap.Default(), nil
		}
		return keymap.Default(), fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return keymap.Default(), nil
	}

	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return keymap.Default(), fmt.Errorf("%w: %w", ErrParse, err)
	}
	binding, err := file.Binding()
	if err != nil {
		return keymap.Default(), fmt.Errorf("%w: %w", ErrParse, err)
	}
	return binding, nil
}

// Save validates b and atomically writes it to path.
func Save(path string, b keymap.Binding) error {
	if b.IsZero() {
		return fmt.Errorf("%w: empty binding", ErrWrite)
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: config path required", ErrWrite)
	}
	data, err := Encode(b)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrWrite, err)
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Encode renders b in the on-disk YAML schema.
func Encode(b keymap.Binding) ([]byte, error) {
	return yaml.Marshal(FileFromBinding(b))
}

// Store owns the config file of one process. Writes are serialized; there is
// a single writer per process and external edits are not watched.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore resolves path once and creates its parent directory.
// An empty path selects DefaultPath().
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absolutePath), 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return &Store{path: absolutePath}, nil
}

// Path returns the resolved config file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored binding, or the default when the file is missing or
// unusable. It never fails.
func (s *Store) Load() keymap.Binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	binding, err := Load(s.path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using default hotkey",
			"path", s.path, "default", binding.String(), "error", err)
	}
	return binding
}

// Save persists b, replacing the previous content.
func (s *Store) Save(b keymap.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Save(s.path, b); err != nil {
		return err
	}
	slog.Debug("[DEBUG-CONFIG] hotkey saved", "path", s.path, "binding", b.String())
	return nil
}

