// Package workflow defines the contract between durable workflow handlers and the
// engine that executes them.
//
// A handler is replayed from the beginning every time its run resumes. Work that must
// not repeat goes through Run, waits go through SleepUntil; both are memoized by name for
// the lifetime of the run, so a replay returns recorded results instead of redoing them.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Context is handed to a Handler for one (re)play of a run.
type Context interface {
	// Context returns the context of the current replay.
	Context() context.Context
	// RunID identifies the run being executed.
	RunID() string
	// Payload decodes the trigger payload into out.
	Payload(out any) error
	// Now returns the engine's current time.
	Now() time.Time
	// Run executes fn once for the lifetime of the run and stores its JSON-encoded
	// result. On later replays the stored result is decoded into out and fn is not called.
	Run(name string, out any, fn func(ctx context.Context) (any, error)) error
	// SleepUntil suspends the run until t. It returns nil once t has been reached
	// (immediately if t is not in the future) and a *SuspendError otherwise, which the
	// handler must return unchanged.
	SleepUntil(name string, t time.Time) error
}

// Handler is the body of a workflow.
type Handler func(wctx Context) error

// SuspendError unwinds a handler to park its run until WakeAt.
type SuspendError struct {
	Step   string
	WakeAt time.Time
}

func (e *SuspendError) Error() string {
	return fmt.Sprintf("workflow suspended at %q until %s", e.Step, e.WakeAt.Format(time.RFC3339))
}

// IsSuspend reports whether err parks the run rather than failing it.
func IsSuspend(err error) (*SuspendError, bool) {
	var se *SuspendError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// RunStep is a typed wrapper around Context.Run.
func RunStep[T any](wctx Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := wctx.Run(name, &out, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	return out, err
}
