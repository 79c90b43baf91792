package repository

import (
	"context"
	"subscription-reminder/internal/domain/constant"
	"subscription-reminder/internal/domain/entity"
)

// WorkflowRunRepository defines persistence for workflow runs.
type WorkflowRunRepository interface {
	// Create inserts a new run.
	Create(ctx context.Context, run *entity.WorkflowRun) error
	// FindByID retrieves a run by its ID.
	FindByID(ctx context.Context, id string) (*entity.WorkflowRun, error)
	// FindActiveByKey retrieves the non-terminal run of a workflow for a business key, if any.
	FindActiveByKey(ctx context.Context, workflow, key string) (*entity.WorkflowRun, error)
	// FindByStatus retrieves all runs in any of the given statuses (used for recovery on startup).
	FindByStatus(ctx context.Context, statuses ...constant.RunStatus) ([]*entity.WorkflowRun, error)
	// Update saves all fields of an existing run.
	Update(ctx context.Context, run *entity.WorkflowRun) error
}

// WorkflowStepRepository defines persistence for memoized steps.
type WorkflowStepRepository interface {
	// FindByRunID retrieves all steps recorded for a run, oldest first.
	FindByRunID(ctx context.Context, runID string) ([]*entity.WorkflowStep, error)
	// Save inserts or updates a step, unique per (run, kind, name).
	Save(ctx context.Context, step *entity.WorkflowStep) error
}
