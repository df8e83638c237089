// Package workerutil supervises the launcher's background goroutines: the
// long-lived hotkey delivery loops and the one-shot delayed tasks.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// RecoveryOptions tunes how a supervised loop is restarted after a panic.
// Zero numeric fields fall back to package defaults. MaxRetries of 1 runs
// the loop once and reports OnFatal on its first panic.
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int

	// OnPanic runs after every recovered panic with a 1-based attempt number.
	OnPanic func(worker string, attempt int)
	// OnFatal runs once when the loop has used up MaxRetries.
	OnFatal func(worker string, maxRetries int)
	// IsShutdown, when it reports true, ends the loop without a restart.
	IsShutdown func() bool
}

// supervisor owns one restartable loop.
type supervisor struct {
	name string
	fn   func(ctx context.Context)
	opts RecoveryOptions
}

func newSupervisor(name string, fn func(ctx context.Context), opts RecoveryOptions) supervisor {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[DEBUG-PANIC] max backoff below initial backoff, clamping",
			"worker", name,
			"initialBackoff", opts.InitialBackoff,
			"maxBackoff", opts.MaxBackoff,
		)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return supervisor{name: name, fn: fn, opts: opts}
}

// RunWithPanicRecovery starts fn on a goroutine tracked by wg. Each panic is
// logged with its stack and fn is started again after an exponential
// backoff. The loop ends when fn returns normally, ctx is done, IsShutdown
// reports true, or MaxRetries panics have been recovered.
func RunWithPanicRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context),
	opts RecoveryOptions,
) {
	s := newSupervisor(name, fn, opts)
	wg.Go(func() { s.run(ctx) })
}

func (s supervisor) run(ctx context.Context) {
	delay := s.opts.InitialBackoff
	for attempt := 1; ; attempt++ {
		if !runRecovered(s.name, func() { s.fn(ctx) }) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if s.shuttingDown() {
			slog.Info("[DEBUG-PANIC] shutdown in progress, not restarting", "worker", s.name)
			return
		}
		if s.opts.OnPanic != nil {
			s.opts.OnPanic(s.name, attempt)
		}
		if attempt >= s.opts.MaxRetries {
			s.giveUp()
			return
		}

		slog.Warn("[DEBUG-PANIC] restarting worker",
			"worker", s.name,
			"attempt", attempt,
			"delay", delay,
		)
		if !Sleep(ctx, delay) {
			return
		}
		delay = nextBackoff(delay, s.opts.MaxBackoff)
	}
}

func (s supervisor) shuttingDown() bool {
	return s.opts.IsShutdown != nil && s.opts.IsShutdown()
}

func (s supervisor) giveUp() {
	slog.Error("[DEBUG-PANIC] worker keeps panicking, giving up",
		"worker", s.name,
		"maxRetries", s.opts.MaxRetries,
	)
	if s.opts.OnFatal != nil {
		s.opts.OnFatal(s.name, s.opts.MaxRetries)
	}
}

// Go runs a one-shot task on a goroutine tracked by wg. A panic is logged and
// the task is not retried.
func Go(wg *sync.WaitGroup, name string, fn func()) {
	wg.Go(func() { runRecovered(name, fn) })
}

// runRecovered calls fn and reports whether it panicked.
func runRecovered(name string, fn func()) (panicked bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		panicked = true
		slog.Error("[DEBUG-PANIC] recovered panic in background task",
			"worker", name,
			"panic", r,
			"stack", string(debug.Stack()),
		)
	}()
	fn()
	return false
}

// Sleep pauses for d and reports false if ctx finished first.
// A non-positive d only checks ctx.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitTimeout reports whether wg drained within timeout. On false the helper
// goroutine stays parked on wg until the stragglers finish.
func WaitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		wg.Wait()
	}()
	select {
	case <-drained:
		return true
	case <-time.After(timeout):
		return false
	}
}

// nextBackoff doubles current up to ceiling.
func nextBackoff(current, ceiling time.Duration) time.Duration {
	switch {
	case current <= 0:
		return defaultInitialBackoff
	case current >= ceiling || current > ceiling/2:
		return ceiling
	default:
		return current * 2
	}
}
