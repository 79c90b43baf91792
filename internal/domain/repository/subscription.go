package repository

import (
	"context"
	"subscription-reminder/internal/domain/entity"
)

// SubscriptionRepository defines the read access the reminder workflow needs.
type SubscriptionRepository interface {
	// FindByID retrieves a subscription with its user joined.
	// A missing record is reported as a wrapped gorm.ErrRecordNotFound.
	FindByID(ctx context.Context, id string) (*entity.Subscription, error)
}
