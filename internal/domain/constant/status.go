package constant

// SubscriptionStatus is the lifecycle state of a subscription record.
type SubscriptionStatus string

const (
	// SubscriptionActive is the only status that permits reminder processing.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionCanceled marks a subscription the user canceled.
	SubscriptionCanceled SubscriptionStatus = "canceled"
	// SubscriptionExpired marks a subscription whose renewal date has passed.
	SubscriptionExpired SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// RunStatus is the state of a workflow run in the execution engine.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSleeping  RunStatus = "sleeping"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// IsTerminal reports whether no further execution happens for a run in this status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCanceled:
		return true
	}
	return false
}

func (s RunStatus) String() string {
	return string(s)
}

// StepKind distinguishes memoized work from memoized suspensions.
type StepKind string

const (
	StepKindRun   StepKind = "run"
	StepKindSleep StepKind = "sleep"
)

// StepStatus is the state of a single memoized step.
type StepStatus string

const (
	StepPending   StepStatus = "pending" // sleep recorded, wake time not reached yet
	StepCompleted StepStatus = "completed"
)
