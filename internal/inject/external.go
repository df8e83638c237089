package inject

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"quicklaunch/internal/procutil"
)

// helperProfile knows how to drive one helper binary. tuning returns the
// default pacing flags for a key delay in milliseconds.
type helperProfile struct {
	tuning    func(delayMs int) []string
	typeArgs  func(tuning []string, text string) []string
	enterArgs []string
}

var helperProfiles = map[string]helperProfile{
	"xdotool": {
		tuning: func(delayMs int) []string {
			return []string{"--delay", strconv.Itoa(delayMs)}
		},
		typeArgs: func(tuning []string, text string) []string {
			return slices.Concat([]string{"type"}, tuning, []string{"--", text})
		},
		enterArgs: []string{"key", "Return"},
	},
	"ydotool": {
		tuning: func(delayMs int) []string {
			return []string{"-d", strconv.Itoa(delayMs), "-H", strconv.Itoa(delayMs / 2)}
		},
		typeArgs: func(tuning []string, text string) []string {
			return slices.Concat([]string{"type"}, tuning, []string{"--", text})
		},
		// 28 is the evdev keycode of Enter: press then release.
		enterArgs: []string{"key", "28:1", "28:0"},
	},
	"wtype": {
		tuning: func(delayMs int) []string {
			return []string{"-d", strconv.Itoa(delayMs)}
		},
		typeArgs: func(tuning []string, text string) []string {
			return slices.Concat(tuning, []string{"--", text})
		},
		enterArgs: []string{"-k", "Return"},
	},
}

// KnownHelpers lists the helper names with a built-in profile.
func KnownHelpers() []string {
	names := make([]string, 0, len(helperProfiles))
	for name := range helperProfiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// runHelper is a test seam for launching the helper process.
var runHelper = func(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	procutil.PrepareHelper(cmd)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// External delegates key synthesis to a helper process.
type External struct {
	helper  string
	profile helperProfile
	tuning  []string
	timeout time.Duration
}

func newExternal(cfg Config) (*External, error) {
	helper := strings.TrimSpace(cfg.Helper)
	if helper == "" {
		helper = DefaultHelper
	}
	name := strings.TrimSuffix(filepath.Base(helper), filepath.Ext(helper))
	profile, ok := helperProfiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownHelper, helper, strings.Join(KnownHelpers(), ", "))
	}
	tuning := profile.tuning(int(cfg.KeyDelay / time.Millisecond))
	if len(cfg.Args) > 0 {
		tuning = slices.Clone(cfg.Args)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHelperTimeout
	}
	return &External{helper: helper, profile: profile, tuning: tuning, timeout: timeout}, nil
}

// Helper returns the helper binary name or path.
func (e *External) Helper() string {
	return e.helper
}

// Type runs the helper twice: once for the text and once for Enter.
func (e *External) Type(ctx context.Context, text string) error {
	if err := validateText(ctx, text); err != nil {
		return err
	}
	if err := e.run(ctx, e.profile.typeArgs(e.tuning, text)); err != nil {
		return err
	}
	if err := e.run(ctx, e.profile.enterArgs); err != nil {
		return err
	}
	slog.Debug("[DEBUG-INJECT] external sequence sent", "helper", e.helper, "chars", len([]rune(text)))
	return nil
}

func (e *External) run(ctx context.Context, args []string) error {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	output, err := runHelper(runCtx, e.helper, args)
	if err != nil {
		// Log the subcommand only; the typed value may be sensitive.
		return fmt.Errorf("%w: %s %s: %w (output: %s)",
			ErrHelperFailed, e.helper, args[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}
