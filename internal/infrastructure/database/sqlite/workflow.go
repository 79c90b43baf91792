package sqlite

import (
	"context"
	"errors"
	"fmt"
	"subscription-reminder/internal/domain/constant"
	"subscription-reminder/internal/domain/entity"
	"subscription-reminder/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeRunStatuses = []constant.RunStatus{constant.RunPending, constant.RunRunning, constant.RunSleeping}

type workflowRunRepository struct {
	db *gorm.DB
}

// NewWorkflowRunRepository creates a new instance of WorkflowRunRepository.
func NewWorkflowRunRepository(db *gorm.DB) repository.WorkflowRunRepository {
	return &workflowRunRepository{db: db}
}

// Create inserts a new run.
func (r *workflowRunRepository) Create(ctx context.Context, run *entity.WorkflowRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("🔴 ERROR: failed to create workflow run %s: %w", run.ID, err)
	}
	return nil
}

// FindByID retrieves a run by its ID.
func (r *workflowRunRepository) FindByID(ctx context.Context, id string) (*entity.WorkflowRun, error) {
	var run entity.WorkflowRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workflow run with ID %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("🔴 ERROR: failed to find workflow run %s: %w", id, err)
	}
	return &run, nil
}

// FindActiveByKey retrieves the most recent non-terminal run for a workflow and key.
func (r *workflowRunRepository) FindActiveByKey(ctx context.Context, workflow, key string) (*entity.WorkflowRun, error) {
	var run entity.WorkflowRun
	err := r.db.WithContext(ctx).
		Where("workflow = ? AND workflow_key = ? AND status IN ?", workflow, key, activeRunStatuses).
		Order("created_at desc").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no active %s run for key %s: %w", workflow, key, err)
		}
		return nil, fmt.Errorf("🔴 ERROR: failed to find active %s run for key %s: %w", workflow, key, err)
	}
	return &run, nil
}

// FindByStatus retrieves all runs in any of the given statuses.
func (r *workflowRunRepository) FindByStatus(ctx context.Context, statuses ...constant.RunStatus) ([]*entity.WorkflowRun, error) {
	var runs []*entity.WorkflowRun
	if err := r.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at asc").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("🔴 ERROR: failed to find workflow runs by status %v: %w", statuses, err)
	}
	return runs, nil
}

// Update saves all fields of an existing run.
func (r *workflowRunRepository) Update(ctx context.Context, run *entity.WorkflowRun) error {
	if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("🔴 ERROR: failed to update workflow run %s: %w", run.ID, err)
	}
	return nil
}

type workflowStepRepository struct {
	db *gorm.DB
}

// NewWorkflowStepRepository creates a new instance of WorkflowStepRepository.
func NewWorkflowStepRepository(db *gorm.DB) repository.WorkflowStepRepository {
	return &workflowStepRepository{db: db}
}

// FindByRunID retrieves all steps recorded for a run, oldest first.
func (r *workflowStepRepository) FindByRunID(ctx context.Context, runID string) ([]*entity.WorkflowStep, error) {
	var steps []*entity.WorkflowStep
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("id asc").Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("🔴 ERROR: failed to find steps for run %s: %w", runID, err)
	}
	return steps, nil
}

// Save inserts a step or updates the existing (run, kind, name) record.
func (r *workflowStepRepository) Save(ctx context.Context, step *entity.WorkflowStep) error {
	if step.ID != 0 {
		if err := r.db.WithContext(ctx).Save(step).Error; err != nil {
			return fmt.Errorf("🔴 ERROR: failed to update step %s/%s for run %s: %w", step.Kind, step.Name, step.RunID, err)
		}
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "kind"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "result", "wake_at", "attempts", "completed_at"}),
	}).Create(step).Error
	if err != nil {
		return fmt.Errorf("🔴 ERROR: failed to save step %s/%s for run %s: %w", step.Kind, step.Name, step.RunID, err)
	}
	return nil
}
