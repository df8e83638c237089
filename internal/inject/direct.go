package inject

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
)

// Test seams over robotgo. On X11 robotgo only paces TypeStr through its
// per-character sleep argument; the pid argument 0 selects the focused window.
var (
	synthType  = func(text string, delayMS int) { robotgo.TypeStr(text, 0, delayMS) }
	synthEnter = func() error { return robotgo.KeyTap("enter") }
	targetOS   = runtime.GOOS
)

// Direct synthesizes key events in-process.
type Direct struct {
	// keyDelay is zero outside Linux.
	keyDelay time.Duration

	// robotgo keeps global state; one sequence at a time.
	mu sync.Mutex
}

func newDirect(keyDelay time.Duration) *Direct {
	if targetOS != "linux" {
		keyDelay = 0
	}
	return &Direct{keyDelay: keyDelay}
}

// KeyDelay returns the pacing applied between key events.
func (d *Direct) KeyDelay() time.Duration {
	return d.keyDelay
}

// Type types text, then Enter.
func (d *Direct) Type(ctx context.Context, text string) error {
	if err := validateText(ctx, text); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	synthType(text, int(d.keyDelay/time.Millisecond))
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := synthEnter(); err != nil {
		return fmt.Errorf("synthesize enter: %w", err)
	}
	slog.Debug("[DEBUG-INJECT] direct sequence sent", "chars", len([]rune(text)), "keyDelay", d.keyDelay)
	return nil
}
