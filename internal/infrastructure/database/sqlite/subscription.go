package sqlite

import (
	"context"
	"errors"
	"fmt"
	"subscription-reminder/internal/domain/entity"
	"subscription-reminder/internal/domain/repository"

	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new instance of SubscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// FindByID retrieves a subscription by its ID with the owning user preloaded.
func (r *subscriptionRepository) FindByID(ctx context.Context, id string) (*entity.Subscription, error) {
	var subscription entity.Subscription
	err := r.db.WithContext(ctx).
		Preload("User", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "name", "email", "line_user_id")
		}).
		Where("id = ?", id).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription with ID %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("🔴 ERROR: failed to find subscription by id %s: %w", id, err)
	}
	return &subscription, nil
}
