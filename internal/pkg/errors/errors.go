package errors

import "errors"

// Custom application errors
var (
	ErrInvalidPayload       = errors.New("invalid workflow payload")          // Trigger payload missing or malformed
	ErrRunNotFound          = errors.New("workflow run not found")            // Unknown run ID
	ErrRunFinished          = errors.New("workflow run already finished")     // Operation on a terminal run
	ErrUnknownWorkflow      = errors.New("workflow is not registered")        // Trigger for an unregistered workflow name
	ErrDatabaseOperation    = errors.New("database operation failed")         // Generic database error
	ErrStepFailed           = errors.New("workflow step failed")              // Step retries exhausted
	ErrScheduling           = errors.New("failed to schedule wake-up")        // Generic scheduling error
	ErrNotification         = errors.New("failed to deliver reminder")        // Email delivery failure
	ErrUnknownReminderType  = errors.New("unknown reminder type")             // Label without a template
	ErrInvalidConfiguration = errors.New("invalid configuration")             // Config values that cannot be used
	ErrInternalServer       = errors.New("internal server error occurred")    // Generic internal error
)
