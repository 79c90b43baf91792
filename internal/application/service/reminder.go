package service

import (
	"context"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/domain/workflow"
)

// ReminderWorkflow is the name the reminder workflow is registered under.
const ReminderWorkflow = "subscription.reminders"

// ReminderService defines the subscription renewal reminder workflow.
type ReminderService interface {
	// SendReminders is the workflow handler. It resolves the subscription once and then
	// walks the reminder schedule, sleeping until each reminder day and notifying on it.
	SendReminders(wctx workflow.Context) error
}

// ReminderNotifier delivers a reminder to the subscription owner.
type ReminderNotifier interface {
	SendReminder(ctx context.Context, email dto.ReminderEmail) error
}
