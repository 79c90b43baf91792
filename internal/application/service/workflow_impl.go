package service

import (
	"context"
	"fmt"
	"strings"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/infrastructure/engine"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"
)

type workflowService struct {
	engine *engine.Engine
	log    logger.Logger
}

// NewWorkflowService creates a new instance of WorkflowService implementation and
// registers the reminder workflow on the engine.
func NewWorkflowService(e *engine.Engine, reminders ReminderService, log logger.Logger) WorkflowService {
	e.Register(ReminderWorkflow, reminders.SendReminders)
	return &workflowService{engine: e, log: log}
}

func (s *workflowService) TriggerReminders(ctx context.Context, req dto.TriggerReminderRequest) (dto.WorkflowRunResponse, error) {
	req.SubscriptionID = strings.TrimSpace(req.SubscriptionID)
	if req.SubscriptionID == "" {
		return dto.WorkflowRunResponse{}, fmt.Errorf("%w: subscriptionId is required", appErrors.ErrInvalidPayload)
	}

	run, created, err := s.engine.Trigger(ctx, ReminderWorkflow, req.SubscriptionID, req)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to trigger reminders for subscription %s", req.SubscriptionID), err)
		return dto.WorkflowRunResponse{}, err
	}

	resp := dto.ToWorkflowRunResponse(run, nil)
	resp.Created = created
	return resp, nil
}

func (s *workflowService) GetRun(ctx context.Context, runID string) (dto.WorkflowRunResponse, error) {
	run, steps, err := s.engine.Inspect(ctx, runID)
	if err != nil {
		return dto.WorkflowRunResponse{}, err
	}
	return dto.ToWorkflowRunResponse(run, steps), nil
}

func (s *workflowService) CancelRun(ctx context.Context, runID string) (dto.WorkflowRunResponse, error) {
	run, err := s.engine.Cancel(ctx, runID)
	if err != nil {
		return dto.WorkflowRunResponse{}, err
	}
	return dto.ToWorkflowRunResponse(run, nil), nil
}

func (s *workflowService) InitializeRuns(ctx context.Context) error {
	return s.engine.Recover(ctx)
}
