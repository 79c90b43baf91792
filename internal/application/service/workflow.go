package service

import (
	"context"
	"subscription-reminder/internal/application/dto"
)

// WorkflowService defines the operations exposed on reminder workflow runs.
type WorkflowService interface {
	// TriggerReminders starts the reminder workflow for a subscription. When a run for
	// the subscription is still in progress it is returned with Created=false.
	TriggerReminders(ctx context.Context, req dto.TriggerReminderRequest) (dto.WorkflowRunResponse, error)
	// GetRun returns a run with its recorded steps.
	GetRun(ctx context.Context, runID string) (dto.WorkflowRunResponse, error)
	// CancelRun stops an unfinished run.
	CancelRun(ctx context.Context, runID string) (dto.WorkflowRunResponse, error)
	// InitializeRuns resumes unfinished runs after a restart.
	InitializeRuns(ctx context.Context) error
}
