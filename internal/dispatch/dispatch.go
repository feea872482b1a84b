// Package dispatch implements the outbound message protocol: the
// focus → clear → type → submit keyboard sequence that posts a message
// or an addressed whisper through the room's input field.
//
// The protocol is expressed against the Keys interface so the exact
// sequence is testable with a scripted fake; the browser implementation
// lives in internal/browser.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Symbolic key names understood by Keys implementations.
const (
	KeyShift     = "Shift"
	KeyHome      = "Home"
	KeyBackspace = "Backspace"
	KeyTab       = "Tab"
	KeyEnter     = "Enter"
)

// whisperPrefix is the directed-message token typed before the target
// username. The completion key (Tab) commits the addressing.
const whisperPrefix = "#@"

// Keys is the minimal keyboard surface the protocol needs. Every call
// suspends until the simulated browser action completes.
type Keys interface {
	// Focus gives keyboard focus to the element at selector.
	Focus(ctx context.Context, selector string) error
	// Type types text into the element at selector without clearing it.
	Type(ctx context.Context, selector, text string) error
	// Down holds a key; Up releases it; Press taps it.
	Down(ctx context.Context, key string) error
	Up(ctx context.Context, key string) error
	Press(ctx context.Context, key string) error
}

// Dispatcher serialises outbound sends against a single input field.
// One dispatch runs at a time; the mutex is the session's send queue.
type Dispatcher struct {
	keys    Keys
	input   string // input field selector
	limiter *rate.Limiter
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error

	mu sync.Mutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithRate paces outbound sends. Zero limit disables pacing.
func WithRate(limit rate.Limit, burst int) Option {
	return func(d *Dispatcher) {
		if limit > 0 {
			d.limiter = rate.NewLimiter(limit, burst)
		}
	}
}

// WithSleep overrides the delay clock (tests).
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

// New creates a Dispatcher posting through the given input selector.
func New(keys Keys, inputSelector string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		keys:   keys,
		input:  inputSelector,
		logger: slog.Default(),
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Post types text into the input field and submits it. A non-zero delay
// is waited out first — the self-message race rule: a send triggered by
// the session's own message must not race the UI's echo of it.
//
// Returns once the submit keystroke is issued; there is no server
// acknowledgment and no retry.
func (d *Dispatcher) Post(ctx context.Context, text string, delay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.pace(ctx); err != nil {
		return err
	}
	if delay > 0 {
		d.logger.Debug("dispatch: self-message delay", "delay", delay)
		if err := d.sleep(ctx, delay); err != nil {
			return err
		}
	}

	if err := d.clear(ctx); err != nil {
		return err
	}
	if err := d.keys.Type(ctx, d.input, text); err != nil {
		return fmt.Errorf("dispatch: type payload: %w", err)
	}
	if err := d.keys.Press(ctx, KeyEnter); err != nil {
		return fmt.Errorf("dispatch: submit: %w", err)
	}

	d.logger.Debug("dispatch: posted", "chars", len(text))
	return nil
}

// Whisper addresses text privately to username: the directed-message
// prefix plus the handle, committed with Tab, then the payload.
// Whisper-to-self routing is the caller's concern — by the time a
// username reaches here it is a remote recipient.
func (d *Dispatcher) Whisper(ctx context.Context, username, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.pace(ctx); err != nil {
		return err
	}

	if err := d.clear(ctx); err != nil {
		return err
	}
	if err := d.keys.Type(ctx, d.input, whisperPrefix+username); err != nil {
		return fmt.Errorf("dispatch: type whisper target: %w", err)
	}
	if err := d.keys.Press(ctx, KeyTab); err != nil {
		return fmt.Errorf("dispatch: commit whisper target: %w", err)
	}
	if err := d.keys.Type(ctx, d.input, text); err != nil {
		return fmt.Errorf("dispatch: type payload: %w", err)
	}
	if err := d.keys.Press(ctx, KeyEnter); err != nil {
		return fmt.Errorf("dispatch: submit: %w", err)
	}

	d.logger.Debug("dispatch: whispered", "target", username, "chars", len(text))
	return nil
}

// clear focuses the input and removes any residual text from a prior
// failed send: select to line start with Shift+Home, then delete.
func (d *Dispatcher) clear(ctx context.Context) error {
	if err := d.keys.Focus(ctx, d.input); err != nil {
		return fmt.Errorf("dispatch: focus input: %w", err)
	}
	if err := d.keys.Down(ctx, KeyShift); err != nil {
		return fmt.Errorf("dispatch: hold shift: %w", err)
	}
	if err := d.keys.Press(ctx, KeyHome); err != nil {
		return fmt.Errorf("dispatch: select to home: %w", err)
	}
	if err := d.keys.Up(ctx, KeyShift); err != nil {
		return fmt.Errorf("dispatch: release shift: %w", err)
	}
	if err := d.keys.Press(ctx, KeyBackspace); err != nil {
		return fmt.Errorf("dispatch: delete selection: %w", err)
	}
	return nil
}

func (d *Dispatcher) pace(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("dispatch: rate wait: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
