// Package engine is a small durable workflow engine on top of the workflow tables.
//
// A run is executed by replaying its handler from the start. Completed steps and sleeps
// are read back from the step table, so the handler sees the same results on every replay
// and side effects inside steps happen once. When a handler sleeps into the future the run
// is parked as sleeping and a wake-up timer re-dispatches it later, in this process or,
// after a restart, through Recover.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"subscription-reminder/internal/domain/constant"
	"subscription-reminder/internal/domain/entity"
	"subscription-reminder/internal/domain/repository"
	"subscription-reminder/internal/domain/workflow"
	"subscription-reminder/internal/infrastructure/metrics"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Waker arms and disarms one-off wake-up timers keyed by run ID.
type Waker interface {
	ScheduleAt(key string, t time.Time, fn func()) error
	Cancel(key string)
}

// RetryPolicy controls how often a failing step is retried before its run fails.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
}

// DefaultRetryPolicy retries a step three times with exponential backoff from two seconds.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Base: 2 * time.Second}

// Engine executes registered workflows durably.
type Engine struct {
	runs     repository.WorkflowRunRepository
	steps    repository.WorkflowStepRepository
	waker    Waker
	metrics  *metrics.Metrics
	log      logger.Logger
	now      func() time.Time
	retry    RetryPolicy
	dispatch func(runID string)

	mu       sync.RWMutex
	handlers map[string]workflow.Handler

	// Execution and trigger dedupe lock exact keys in separate spaces.
	runLocks     *keyedMutex
	triggerLocks *keyedMutex

	baseCtx  context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	closeMu  sync.Mutex
	closed   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithDispatcher replaces the default dispatcher, which executes runs on a new goroutine.
func WithDispatcher(dispatch func(runID string)) Option {
	return func(e *Engine) { e.dispatch = dispatch }
}

// New creates an Engine.
func New(
	runs repository.WorkflowRunRepository,
	steps repository.WorkflowStepRepository,
	waker Waker,
	m *metrics.Metrics,
	log logger.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		runs:         runs,
		steps:        steps,
		waker:        waker,
		metrics:      m,
		log:          log,
		now:          time.Now,
		retry:        DefaultRetryPolicy,
		handlers:     make(map[string]workflow.Handler),
		runLocks:     newKeyedMutex(),
		triggerLocks: newKeyedMutex(),
	}
	e.baseCtx, e.cancel = context.WithCancel(context.Background())
	e.dispatch = e.executeAsync
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register binds a handler to a workflow name.
func (e *Engine) Register(name string, h workflow.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = h
	e.log.Info(fmt.Sprintf("Registered workflow %s", name))
}

func (e *Engine) handler(name string) (workflow.Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handlers[name]
	return h, ok
}

// Trigger starts a run of workflow for key, unless a non-terminal run for the same
// workflow and key exists, in which case that run is returned with created=false.
func (e *Engine) Trigger(ctx context.Context, name, key string, payload any) (*entity.WorkflowRun, bool, error) {
	if _, ok := e.handler(name); !ok {
		return nil, false, fmt.Errorf("%w: %s", appErrors.ErrUnknownWorkflow, name)
	}

	run, created, err := e.createRun(ctx, name, key, payload)
	if err != nil {
		return nil, false, err
	}
	if created {
		e.dispatch(run.ID)
	}
	return run, created, nil
}

func (e *Engine) createRun(ctx context.Context, name, key string, payload any) (*entity.WorkflowRun, bool, error) {
	unlock := e.triggerLocks.Lock(name + "\x00" + key)
	defer unlock()

	existing, err := e.runs.FindActiveByKey(ctx, name, key)
	if err == nil {
		e.log.Info(fmt.Sprintf("Run %s of %s for %s is still %s, not starting another", existing.ID, name, key, existing.Status))
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		e.log.Error(fmt.Sprintf("Failed to look up active %s run for %s", name, key), err)
		return nil, false, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", appErrors.ErrInvalidPayload, err)
	}

	run := &entity.WorkflowRun{
		ID:       uuid.NewString(),
		Workflow: name,
		Key:      key,
		Payload:  datatypes.JSON(raw),
		Status:   constant.RunPending,
	}
	if err := e.runs.Create(ctx, run); err != nil {
		e.log.Error(fmt.Sprintf("Failed to create %s run for %s", name, key), err)
		return nil, false, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	e.log.Info(fmt.Sprintf("Started run %s of %s for %s", run.ID, name, key))
	return run, true, nil
}

// executeAsync runs Execute on its own goroutine, tracked for Shutdown.
func (e *Engine) executeAsync(runID string) {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		e.log.Debug(fmt.Sprintf("Engine is shutting down, run %s is left for recovery", runID))
		return
	}
	e.inflight.Add(1)
	e.closeMu.Unlock()

	go func() {
		defer e.inflight.Done()
		if err := e.Execute(e.baseCtx, runID); err != nil {
			e.log.Error(fmt.Sprintf("Run %s failed", runID), err)
		}
	}()
}

// Shutdown stops dispatching and waits for executing runs to record their outcome.
// When ctx expires first, in-flight runs are canceled and left unfinished for Recover.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.closeMu.Lock()
	e.closed = true
	e.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		e.log.Info("Workflow engine stopped.")
		return nil
	case <-ctx.Done():
		e.log.Warn("Workflow engine shutdown timed out, canceling runs in flight")
		e.cancel()
		<-done
		return ctx.Err()
	}
}

// Execute replays the run's handler. It returns nil when the run completes or parks
// itself until a later wake-up, and the handler's error when the run fails.
func (e *Engine) Execute(ctx context.Context, runID string) error {
	unlock := e.runLocks.Lock(runID)
	defer unlock()

	run, err := e.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", appErrors.ErrRunNotFound, runID)
		}
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	if run.Status.IsTerminal() {
		e.log.Debug(fmt.Sprintf("Run %s is already %s, nothing to execute", run.ID, run.Status))
		return nil
	}

	h, ok := e.handler(run.Workflow)
	if !ok {
		return e.finish(ctx, run, fmt.Errorf("%w: %s", appErrors.ErrUnknownWorkflow, run.Workflow))
	}

	// Woken too early (clock skew, or a timer armed before a restart): park again.
	if run.Status == constant.RunSleeping && run.WakeAt != nil && e.now().Before(*run.WakeAt) {
		e.log.Debug(fmt.Sprintf("Run %s woke before %v, re-arming", run.ID, *run.WakeAt))
		return e.arm(run)
	}

	steps, err := e.steps.FindByRunID(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	run.Status = constant.RunRunning
	run.WakeAt = nil
	run.Error = ""
	run.Attempts++
	if err := e.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	e.log.Debug(fmt.Sprintf("Executing run %s of %s (attempt %d, %d recorded steps)", run.ID, run.Workflow, run.Attempts, len(steps)))
	return e.finish(ctx, run, h(newRunContext(ctx, e, run, steps)))
}

// finish records the outcome of one handler execution.
func (e *Engine) finish(ctx context.Context, run *entity.WorkflowRun, herr error) error {
	if ctx.Err() != nil {
		// Interrupted, not failed: the run stays running and Recover replays it.
		e.log.Warn(fmt.Sprintf("Run %s interrupted: %v", run.ID, ctx.Err()))
		return ctx.Err()
	}

	var result error
	if se, ok := workflow.IsSuspend(herr); ok {
		wake := se.WakeAt
		run.Status = constant.RunSleeping
		run.WakeAt = &wake
		e.log.Info(fmt.Sprintf("Run %s sleeping at %q until %v", run.ID, se.Step, wake))
	} else if herr != nil {
		run.Status = constant.RunFailed
		run.Error = herr.Error()
		result = herr
		e.log.Error(fmt.Sprintf("Run %s of %s failed", run.ID, run.Workflow), herr)
	} else {
		run.Status = constant.RunCompleted
		e.log.Info(fmt.Sprintf("Run %s of %s completed", run.ID, run.Workflow))
	}
	e.metrics.RunsTotal.WithLabelValues(run.Workflow, run.Status.String()).Inc()

	if err := e.runs.Update(ctx, run); err != nil {
		e.log.Error(fmt.Sprintf("Failed to record outcome of run %s", run.ID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	if run.Status == constant.RunSleeping {
		if err := e.arm(run); err != nil {
			return err
		}
	}
	return result
}

// arm schedules the wake-up of a sleeping run.
func (e *Engine) arm(run *entity.WorkflowRun) error {
	if run.WakeAt == nil {
		return nil
	}
	runID := run.ID
	if err := e.waker.ScheduleAt(runID, *run.WakeAt, func() { e.dispatch(runID) }); err != nil {
		e.log.Error(fmt.Sprintf("Failed to schedule wake-up of run %s", runID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrScheduling, err)
	}
	return nil
}

// Recover resumes every unfinished run after a restart: sleeping runs are re-armed
// (or dispatched if their wake time has passed) and pending or running runs are replayed.
func (e *Engine) Recover(ctx context.Context) error {
	e.log.Info("Recovering unfinished workflow runs...")
	runs, err := e.runs.FindByStatus(ctx, constant.RunPending, constant.RunRunning, constant.RunSleeping)
	if err != nil {
		e.log.Error("Failed to retrieve runs for recovery", err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	armed, dispatched := 0, 0
	now := e.now()
	for _, run := range runs {
		if run.Status == constant.RunSleeping && run.WakeAt != nil && run.WakeAt.After(now) {
			if err := e.arm(run); err != nil {
				continue
			}
			armed++
			continue
		}
		e.dispatch(run.ID)
		dispatched++
	}

	e.log.Info(fmt.Sprintf("Run recovery complete. Armed: %d, Dispatched: %d", armed, dispatched))
	return nil
}

// Cancel stops a run from outside. Already completed steps are not undone.
func (e *Engine) Cancel(ctx context.Context, runID string) (*entity.WorkflowRun, error) {
	unlock := e.runLocks.Lock(runID)
	defer unlock()

	run, err := e.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", appErrors.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	if run.Status.IsTerminal() {
		return run, fmt.Errorf("%w: run %s is %s", appErrors.ErrRunFinished, runID, run.Status)
	}

	e.waker.Cancel(run.ID)
	run.Status = constant.RunCanceled
	run.WakeAt = nil
	if err := e.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	e.metrics.RunsTotal.WithLabelValues(run.Workflow, run.Status.String()).Inc()
	e.log.Info(fmt.Sprintf("Canceled run %s of %s", run.ID, run.Workflow))
	return run, nil
}

// Inspect returns a run with its recorded steps.
func (e *Engine) Inspect(ctx context.Context, runID string) (*entity.WorkflowRun, []*entity.WorkflowStep, error) {
	run, err := e.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", appErrors.ErrRunNotFound, runID)
		}
		return nil, nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	steps, err := e.steps.FindByRunID(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	return run, steps, nil
}
