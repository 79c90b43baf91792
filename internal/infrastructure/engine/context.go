package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"subscription-reminder/internal/domain/constant"
	"subscription-reminder/internal/domain/entity"
	"subscription-reminder/internal/domain/workflow"
	appErrors "subscription-reminder/internal/pkg/errors"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/datatypes"
)

type stepKey struct {
	kind constant.StepKind
	name string
}

// runContext implements workflow.Context for one replay of a run.
type runContext struct {
	ctx    context.Context
	engine *Engine
	run    *entity.WorkflowRun
	steps  map[stepKey]*entity.WorkflowStep
}

func newRunContext(ctx context.Context, e *Engine, run *entity.WorkflowRun, recorded []*entity.WorkflowStep) *runContext {
	steps := make(map[stepKey]*entity.WorkflowStep, len(recorded))
	for _, st := range recorded {
		steps[stepKey{kind: st.Kind, name: st.Name}] = st
	}
	return &runContext{ctx: ctx, engine: e, run: run, steps: steps}
}

var _ workflow.Context = (*runContext)(nil)

func (c *runContext) Context() context.Context {
	return c.ctx
}

func (c *runContext) RunID() string {
	return c.run.ID
}

func (c *runContext) Now() time.Time {
	return c.engine.now()
}

func (c *runContext) Payload(out any) error {
	if err := json.Unmarshal(c.run.Payload, out); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrInvalidPayload, err)
	}
	return nil
}

func (c *runContext) Run(name string, out any, fn func(ctx context.Context) (any, error)) error {
	key := stepKey{kind: constant.StepKindRun, name: name}
	if st, ok := c.steps[key]; ok && st.Status == constant.StepCompleted {
		c.engine.metrics.StepsTotal.WithLabelValues(string(key.kind), "replayed").Inc()
		c.engine.log.Debug(fmt.Sprintf("Run %s: step %q replayed from record", c.run.ID, name))
		return decodeResult(st.Result, out)
	}

	var result any
	attempts := 0
	backoff := retry.WithMaxRetries(c.engine.retry.MaxRetries, retry.NewExponential(c.engine.retry.Base))
	err := retry.Do(c.ctx, backoff, func(ctx context.Context) error {
		attempts++
		r, err := fn(ctx)
		if err != nil {
			c.engine.log.Warn(fmt.Sprintf("Run %s: step %q attempt %d failed: %v", c.run.ID, name, attempts, err))
			return retry.RetryableError(err)
		}
		result = r
		return nil
	})
	if err != nil {
		c.engine.metrics.StepsTotal.WithLabelValues(string(key.kind), "failed").Inc()
		return fmt.Errorf("%w: %q after %d attempts: %w", appErrors.ErrStepFailed, name, attempts, err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: encode result of step %q: %v", appErrors.ErrInternalServer, name, err)
	}
	done := c.engine.now()
	st := &entity.WorkflowStep{
		RunID:       c.run.ID,
		Kind:        key.kind,
		Name:        name,
		Status:      constant.StepCompleted,
		Result:      datatypes.JSON(raw),
		Attempts:    attempts,
		CompletedAt: &done,
	}
	if err := c.engine.steps.Save(c.ctx, st); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	c.steps[key] = st
	c.engine.metrics.StepsTotal.WithLabelValues(string(key.kind), "executed").Inc()
	return decodeResult(st.Result, out)
}

func (c *runContext) SleepUntil(name string, t time.Time) error {
	key := stepKey{kind: constant.StepKindSleep, name: name}
	now := c.engine.now()

	st, ok := c.steps[key]
	if ok {
		if st.Status == constant.StepCompleted {
			return nil
		}
		// The recorded wake time wins over t: the sleep is memoized by name.
		if st.WakeAt != nil && now.Before(*st.WakeAt) {
			return &workflow.SuspendError{Step: name, WakeAt: *st.WakeAt}
		}
		st.Status = constant.StepCompleted
		st.CompletedAt = &now
		if err := c.engine.steps.Save(c.ctx, st); err != nil {
			return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
		}
		c.engine.metrics.StepsTotal.WithLabelValues(string(key.kind), "executed").Inc()
		return nil
	}

	wake := t
	st = &entity.WorkflowStep{
		RunID:  c.run.ID,
		Kind:   key.kind,
		Name:   name,
		WakeAt: &wake,
	}
	if t.After(now) {
		st.Status = constant.StepPending
	} else {
		st.Status = constant.StepCompleted
		st.CompletedAt = &now
	}
	if err := c.engine.steps.Save(c.ctx, st); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	c.steps[key] = st

	if st.Status == constant.StepPending {
		return &workflow.SuspendError{Step: name, WakeAt: wake}
	}
	c.engine.metrics.StepsTotal.WithLabelValues(string(key.kind), "executed").Inc()
	return nil
}

func decodeResult(raw datatypes.JSON, out any) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode step result: %v", appErrors.ErrInternalServer, err)
	}
	return nil
}
