package inject

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// NOTE: This file overrides package-level function variables (synthType,
// runHelper, targetOS, ...). Do not use t.Parallel() here.

type synthRecorder struct {
	mu     sync.Mutex
	events []string
	sleeps []int
}

func installSynthRecorder(t *testing.T, goos string) *synthRecorder {
	t.Helper()
	rec := &synthRecorder{}
	origType, origEnter, origOS := synthType, synthEnter, targetOS
	t.Cleanup(func() {
		synthType, synthEnter, targetOS = origType, origEnter, origOS
	})
	synthType = func(text string, delayMS int) {
		rec.mu.Lock()
		rec.events = append(rec.events, "type:"+text)
		rec.sleeps = append(rec.sleeps, delayMS)
		rec.mu.Unlock()
	}
	synthEnter = func() error {
		rec.mu.Lock()
		rec.events = append(rec.events, "enter")
		rec.mu.Unlock()
		return nil
	}
	targetOS = goos
	return rec
}

type helperCall struct {
	name string
	args []string
}

func installHelperRecorder(t *testing.T, fail func(args []string) ([]byte, error)) *[]helperCall {
	t.Helper()
	calls := &[]helperCall{}
	orig := runHelper
	t.Cleanup(func() { runHelper = orig })
	runHelper = func(ctx context.Context, name string, args []string) ([]byte, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("helper %s started without a deadline", name)
		}
		*calls = append(*calls, helperCall{name: name, args: slices.Clone(args)})
		if fail != nil {
			return fail(args)
		}
		return nil, nil
	}
	return calls
}

func TestDirectTypesTextThenEnter(t *testing.T) {
	rec := installSynthRecorder(t, "linux")
	b, err := New(Config{Kind: KindDirect})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.Type(context.Background(), "example.com"); err != nil {
		t.Fatalf("Type() error = %v", err)
	}
	want := []string{"type:example.com", "enter"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	if !reflect.DeepEqual(rec.sleeps, []int{12}) {
		t.Fatalf("per-character delays = %v, want [12]", rec.sleeps)
	}
}

func TestDirectKeyDelayOnlyOnLinux(t *testing.T) {
	tests := []struct {
		goos    string
		want    time.Duration
		wantArg int
	}{
		{goos: "linux", want: 30 * time.Millisecond, wantArg: 30},
		{goos: "windows", want: 0, wantArg: 0},
		{goos: "darwin", want: 0, wantArg: 0},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			rec := installSynthRecorder(t, tt.goos)
			b, err := New(Config{Kind: KindDirect, KeyDelay: 30 * time.Millisecond})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			direct, ok := b.(*Direct)
			if !ok {
				t.Fatalf("New() = %T, want *Direct", b)
			}
			if direct.KeyDelay() != tt.want {
				t.Fatalf("KeyDelay() = %v, want %v", direct.KeyDelay(), tt.want)
			}
			if err := direct.Type(context.Background(), "abc"); err != nil {
				t.Fatalf("Type() error = %v", err)
			}
			if !reflect.DeepEqual(rec.sleeps, []int{tt.wantArg}) {
				t.Fatalf("per-character delay passed to TypeStr = %v, want [%d]", rec.sleeps, tt.wantArg)
			}
		})
	}
}

func TestDirectEmptyTextTypesNothing(t *testing.T) {
	rec := installSynthRecorder(t, "linux")
	b, _ := New(Config{})
	if err := b.Type(context.Background(), ""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Type(\"\") error = %v, want ErrEmptyText", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("events = %v, want none", rec.events)
	}
}

func TestDirectEnterFailure(t *testing.T) {
	installSynthRecorder(t, "linux")
	synthEnter = func() error { return errors.New("no display") }
	b, _ := New(Config{})
	if err := b.Type(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("Type() error = %v", err)
	}
}

func TestExternalHelperProfiles(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantType  []string
		wantEnter []string
	}{
		{
			name:      "ydotool default",
			cfg:       Config{Kind: KindExternal},
			wantType:  []string{"type", "-d", "12", "-H", "6", "--", "example.com"},
			wantEnter: []string{"key", "28:1", "28:0"},
		},
		{
			name:      "xdotool",
			cfg:       Config{Kind: KindExternal, Helper: "xdotool"},
			wantType:  []string{"type", "--delay", "12", "--", "example.com"},
			wantEnter: []string{"key", "Return"},
		},
		{
			name:      "wtype by path",
			cfg:       Config{Kind: KindExternal, Helper: "/usr/bin/wtype", KeyDelay: 5 * time.Millisecond},
			wantType:  []string{"-d", "5", "--", "example.com"},
			wantEnter: []string{"-k", "Return"},
		},
		{
			name:      "user args replace tuning",
			cfg:       Config{Kind: KindExternal, Helper: "ydotool", Args: []string{"-d", "0"}},
			wantType:  []string{"type", "-d", "0", "--", "example.com"},
			wantEnter: []string{"key", "28:1", "28:0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := installHelperRecorder(t, nil)
			b, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if err := b.Type(context.Background(), "example.com"); err != nil {
				t.Fatalf("Type() error = %v", err)
			}
			if len(*calls) != 2 {
				t.Fatalf("helper calls = %d, want 2", len(*calls))
			}
			if !reflect.DeepEqual((*calls)[0].args, tt.wantType) {
				t.Errorf("type args = %v, want %v", (*calls)[0].args, tt.wantType)
			}
			if !reflect.DeepEqual((*calls)[1].args, tt.wantEnter) {
				t.Errorf("enter args = %v, want %v", (*calls)[1].args, tt.wantEnter)
			}
		})
	}
}

func TestExternalHelperFailure(t *testing.T) {
	calls := installHelperRecorder(t, func([]string) ([]byte, error) {
		return []byte("failed to connect to socket\n"), errors.New("exit status 2")
	})
	b, err := New(Config{Kind: KindExternal})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = b.Type(context.Background(), "secret-value")
	if !errors.Is(err, ErrHelperFailed) {
		t.Fatalf("Type() error = %v, want ErrHelperFailed", err)
	}
	if strings.Contains(err.Error(), "secret-value") {
		t.Fatalf("error must not leak the typed value: %v", err)
	}
	if !strings.Contains(err.Error(), "failed to connect to socket") {
		t.Fatalf("error should carry helper output: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("Enter must not be sent after a failed type step, calls = %d", len(*calls))
	}
}

func TestExternalMissingBinary(t *testing.T) {
	b, err := New(Config{Kind: KindExternal, Helper: "/nonexistent/xdotool", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Type(context.Background(), "x"); !errors.Is(err, ErrHelperFailed) {
		t.Fatalf("Type() error = %v, want ErrHelperFailed", err)
	}
}

func TestNewRejectsUnknownSelections(t *testing.T) {
	if _, err := New(Config{Kind: "clipboard"}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("New(kind) error = %v, want ErrUnknownKind", err)
	}
	if _, err := New(Config{Kind: KindExternal, Helper: "dotool"}); !errors.Is(err, ErrUnknownHelper) {
		t.Fatalf("New(helper) error = %v, want ErrUnknownHelper", err)
	}
}

func TestNewIsPureFunctionOfConfig(t *testing.T) {
	installSynthRecorder(t, "linux")
	configs := []Config{
		{Kind: KindDirect},
		{Kind: KindDirect, KeyDelay: 20 * time.Millisecond},
		{Kind: KindExternal, Helper: "xdotool", Args: []string{"--delay", "1"}},
		{Kind: KindExternal},
	}
	for _, cfg := range configs {
		first, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", cfg, err)
		}
		second, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", cfg, err)
		}
		if reflect.TypeOf(first) != reflect.TypeOf(second) {
			t.Fatalf("New(%+v) types differ: %T vs %T", cfg, first, second)
		}
		if ext, ok := first.(*External); ok {
			other := second.(*External)
			if ext.helper != other.helper || !reflect.DeepEqual(ext.tuning, other.tuning) || ext.timeout != other.timeout {
				t.Fatalf("New(%+v) external backends differ", cfg)
			}
			continue
		}
		if first.(*Direct).KeyDelay() != second.(*Direct).KeyDelay() {
			t.Fatalf("New(%+v) direct backends differ", cfg)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{"": KindDirect, "direct": KindDirect, " External ": KindExternal}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("paste"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(paste) error = %v", err)
	}
}

func TestCancelledContextTypesNothing(t *testing.T) {
	rec := installSynthRecorder(t, "linux")
	calls := installHelperRecorder(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	direct, _ := New(Config{Kind: KindDirect})
	external, _ := New(Config{Kind: KindExternal})
	if err := direct.Type(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("direct Type() error = %v", err)
	}
	if err := external.Type(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("external Type() error = %v", err)
	}
	if len(rec.events) != 0 || len(*calls) != 0 {
		t.Fatalf("cancelled context must not inject: events=%v calls=%v", rec.events, *calls)
	}
}
