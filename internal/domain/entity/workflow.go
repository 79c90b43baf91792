package entity

import (
	"subscription-reminder/internal/domain/constant"
	"time"

	"gorm.io/datatypes"
)

// WorkflowRun is one execution of a registered workflow, keyed by its business key
// (the subscription ID for reminder runs).
type WorkflowRun struct {
	ID        string             `gorm:"column:id;primaryKey"`
	Workflow  string             `gorm:"column:workflow;index:idx_workflow_key"`
	Key       string             `gorm:"column:workflow_key;index:idx_workflow_key"`
	Payload   datatypes.JSON     `gorm:"column:payload"`
	Status    constant.RunStatus `gorm:"column:status;index"`
	WakeAt    *time.Time         `gorm:"column:wake_at"`
	Error     string             `gorm:"column:error;type:text"`
	Attempts  int                `gorm:"column:attempts"` // number of times the handler was (re)played
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the WorkflowRun entity.
func (WorkflowRun) TableName() string {
	return "workflow_runs"
}

// WorkflowStep is the memoized outcome of a named step or sleep within a run.
type WorkflowStep struct {
	ID          uint                `gorm:"primaryKey;autoIncrement"`
	RunID       string              `gorm:"column:run_id;uniqueIndex:idx_run_step"`
	Kind        constant.StepKind   `gorm:"column:kind;uniqueIndex:idx_run_step"`
	Name        string              `gorm:"column:name;uniqueIndex:idx_run_step"`
	Status      constant.StepStatus `gorm:"column:status"`
	Result      datatypes.JSON      `gorm:"column:result"`
	WakeAt      *time.Time          `gorm:"column:wake_at"`
	Attempts    int                 `gorm:"column:attempts"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
	CreatedAt   time.Time
}

// TableName specifies the table name for the WorkflowStep entity.
func (WorkflowStep) TableName() string {
	return "workflow_steps"
}
