package dto

import (
	"subscription-reminder/internal/domain/entity"
	"time"
)

// WorkflowRunResponse is the DTO for reporting a workflow run to API clients.
type WorkflowRunResponse struct {
	RunID     string                 `json:"runId"`
	Workflow  string                 `json:"workflow"`
	Key       string                 `json:"key"`
	Status    string                 `json:"status"`
	Created   bool                   `json:"created"`
	WakeAt    *time.Time             `json:"wakeAt,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Attempts  int                    `json:"attempts"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
	Steps     []WorkflowStepResponse `json:"steps,omitempty"`
}

// WorkflowStepResponse is the DTO for one recorded step of a run.
type WorkflowStepResponse struct {
	Name        string     `json:"name"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	WakeAt      *time.Time `json:"wakeAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ToWorkflowRunResponse converts a run and its steps to a WorkflowRunResponse DTO.
func ToWorkflowRunResponse(run *entity.WorkflowRun, steps []*entity.WorkflowStep) WorkflowRunResponse {
	resp := WorkflowRunResponse{
		RunID:     run.ID,
		Workflow:  run.Workflow,
		Key:       run.Key,
		Status:    run.Status.String(),
		WakeAt:    run.WakeAt,
		Error:     run.Error,
		Attempts:  run.Attempts,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
	}
	for _, st := range steps {
		resp.Steps = append(resp.Steps, WorkflowStepResponse{
			Name:        st.Name,
			Kind:        string(st.Kind),
			Status:      string(st.Status),
			Attempts:    st.Attempts,
			WakeAt:      st.WakeAt,
			CompletedAt: st.CompletedAt,
		})
	}
	return resp
}
