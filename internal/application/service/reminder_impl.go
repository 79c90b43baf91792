package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/domain/entity"
	"subscription-reminder/internal/domain/repository"
	"subscription-reminder/internal/domain/workflow"
	"subscription-reminder/internal/infrastructure/metrics"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"

	"gorm.io/gorm"
)

// Step names other than the reminder labels.
const (
	stepFetchSubscription = "get subscription"
	stepResolveState      = "resolve subscription state"
)

// Reasons a run stops before scheduling any reminder.
const (
	skipNotFound      = "not_found"
	skipInactive      = "inactive"
	skipRenewalPassed = "renewal_passed"
)

// stateDecision is the memoized outcome of the state gate.
type stateDecision struct {
	Proceed bool   `json:"proceed"`
	Reason  string `json:"reason,omitempty"`
}

type reminderService struct {
	subscriptionRepo repository.SubscriptionRepository
	notifier         ReminderNotifier
	schedule         entity.ReminderSchedule
	metrics          *metrics.Metrics
	log              logger.Logger
}

// NewReminderService creates a new instance of ReminderService implementation.
func NewReminderService(
	subscriptionRepo repository.SubscriptionRepository,
	notifier ReminderNotifier,
	schedule entity.ReminderSchedule,
	m *metrics.Metrics,
	log logger.Logger,
) ReminderService {
	return &reminderService{
		subscriptionRepo: subscriptionRepo,
		notifier:         notifier,
		schedule:         schedule,
		metrics:          m,
		log:              log,
	}
}

// SendReminders runs the reminder workflow for the subscription in the payload.
//
// The state gate is evaluated once per run: a subscription canceled after the gate
// passed still receives the remaining reminders. Stopping such a run is left to
// whoever cancels the run in the engine.
func (s *reminderService) SendReminders(wctx workflow.Context) error {
	var req dto.TriggerReminderRequest
	if err := wctx.Payload(&req); err != nil {
		return err
	}
	subscriptionID := strings.TrimSpace(req.SubscriptionID)
	if subscriptionID == "" {
		return fmt.Errorf("%w: subscriptionId is required", appErrors.ErrInvalidPayload)
	}

	subscription, err := s.fetchSubscription(wctx, subscriptionID)
	if err != nil {
		return err
	}

	decision, err := workflow.RunStep(wctx, stepResolveState, func(ctx context.Context) (stateDecision, error) {
		return s.resolveState(wctx, subscriptionID, subscription), nil
	})
	if err != nil {
		return err
	}
	if !decision.Proceed {
		return nil
	}

	// Position in the schedule is not stored: every replay recomputes the same events
	// from the memoized renewal date and lets the engine skip what already happened.
	for _, event := range s.schedule.Events(subscription.RenewalDate) {
		if err := s.processReminder(wctx, subscription, event); err != nil {
			return err
		}
	}
	return nil
}

// fetchSubscription reads the subscription once per run. A missing record yields nil.
func (s *reminderService) fetchSubscription(wctx workflow.Context, id string) (*entity.Subscription, error) {
	return workflow.RunStep(wctx, stepFetchSubscription, func(ctx context.Context) (*entity.Subscription, error) {
		subscription, err := s.subscriptionRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			s.log.Error(fmt.Sprintf("Failed to fetch subscription %s", id), err)
			return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
		}
		return subscription, nil
	})
}

func (s *reminderService) resolveState(wctx workflow.Context, id string, subscription *entity.Subscription) stateDecision {
	switch {
	case subscription == nil:
		s.log.Warn(fmt.Sprintf("Subscription %s not found. Stopping workflow.", id))
		return s.skip(skipNotFound)
	case !subscription.IsActive():
		s.log.Info(fmt.Sprintf("Subscription %s is %s. Stopping workflow.", id, subscription.Status))
		return s.skip(skipInactive)
	case !subscription.RenewalDate.After(wctx.Now()):
		s.log.Info(fmt.Sprintf("Renewal date has passed for subscription %s. Stopping workflow.", id))
		return s.skip(skipRenewalPassed)
	}
	return stateDecision{Proceed: true}
}

func (s *reminderService) skip(reason string) stateDecision {
	s.metrics.RunsSkipped.WithLabelValues(reason).Inc()
	return stateDecision{Proceed: false, Reason: reason}
}

// processReminder sleeps until the reminder date if it lies ahead, then fires the
// reminder when today is its calendar day. A day that has already gone by is skipped.
func (s *reminderService) processReminder(wctx workflow.Context, subscription *entity.Subscription, event entity.ReminderEvent) error {
	if event.Date.After(wctx.Now()) {
		s.log.Info(fmt.Sprintf("Sleeping until %s at %v", event.Label, event.Date))
		if err := wctx.SleepUntil(event.Label, event.Date); err != nil {
			return err
		}
	}

	if !s.schedule.SameDay(wctx.Now(), event.Date) {
		s.log.Debug(fmt.Sprintf("Not sending %s for subscription %s: its day %s is over", event.Label, subscription.ID, event.Date.Format("2006-01-02")))
		return nil
	}
	return s.triggerReminder(wctx, event.Label, subscription)
}

func (s *reminderService) triggerReminder(wctx workflow.Context, label string, subscription *entity.Subscription) error {
	_, err := workflow.RunStep(wctx, label, func(ctx context.Context) (dto.ReminderDelivery, error) {
		s.log.Info(fmt.Sprintf("Triggering %s reminder", label))

		to := ""
		if subscription.User != nil {
			to = subscription.User.Email
		}
		err := s.notifier.SendReminder(ctx, dto.ReminderEmail{
			To:           to,
			Type:         label,
			Subscription: subscription,
		})
		if err != nil {
			return dto.ReminderDelivery{}, err
		}

		s.metrics.RemindersSent.WithLabelValues(label).Inc()
		return dto.ReminderDelivery{Label: label, To: to, SentAt: wctx.Now()}, nil
	})
	return err
}
