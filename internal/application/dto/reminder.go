package dto

import (
	"subscription-reminder/internal/domain/entity"
	"time"
)

// TriggerReminderRequest is the payload that starts a reminder workflow for one subscription.
type TriggerReminderRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

// ReminderEmail is the payload handed to the email delivery subsystem.
type ReminderEmail struct {
	To           string               `json:"to"`
	Type         string               `json:"type"` // reminder label, e.g. "7 days before reminder"
	Subscription *entity.Subscription `json:"subscription"`
}

// ReminderDelivery is the memoized result of a reminder notification step.
type ReminderDelivery struct {
	Label  string    `json:"label"`
	To     string    `json:"to"`
	SentAt time.Time `json:"sentAt"`
}
