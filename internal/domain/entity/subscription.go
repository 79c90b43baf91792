package entity

import (
	"subscription-reminder/internal/domain/constant"
	"time"

	"gorm.io/gorm"
)

// Frequency is the billing period of a subscription.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// renewalPeriods maps a frequency to its length in days.
var renewalPeriods = map[Frequency]int{
	FrequencyDaily:   1,
	FrequencyWeekly:  7,
	FrequencyMonthly: 30,
	FrequencyYearly:  365,
}

// Subscription is a user's recurring subscription. The reminder workflow only reads it.
type Subscription struct {
	ID            string                      `gorm:"column:id;primaryKey" json:"id"`
	Name          string                      `gorm:"column:name" json:"name"`
	Price         float64                     `gorm:"column:price" json:"price"`
	Currency      string                      `gorm:"column:currency;default:USD" json:"currency"`
	Frequency     Frequency                   `gorm:"column:frequency" json:"frequency"`
	Category      string                      `gorm:"column:category" json:"category"`
	PaymentMethod string                      `gorm:"column:payment_method" json:"paymentMethod"`
	Status        constant.SubscriptionStatus `gorm:"column:status;default:active;index" json:"status"`
	StartDate     time.Time                   `gorm:"column:start_date" json:"startDate"`
	RenewalDate   time.Time                   `gorm:"column:renewal_date" json:"renewalDate"`
	UserID        uint                        `gorm:"column:user_id;index" json:"userId"`
	User          *User                       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

// TableName specifies the table name for the Subscription entity.
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActive reports whether reminders may be processed for the subscription.
func (s *Subscription) IsActive() bool {
	return s.Status == constant.SubscriptionActive
}

// BeforeSave derives a missing renewal date from the start date and frequency,
// and expires subscriptions whose renewal date has already passed.
func (s *Subscription) BeforeSave(tx *gorm.DB) error {
	s.ApplyRenewalRules(time.Now())
	return nil
}

// ApplyRenewalRules is the clock-explicit form of the BeforeSave hook.
func (s *Subscription) ApplyRenewalRules(now time.Time) {
	if s.RenewalDate.IsZero() && !s.StartDate.IsZero() {
		if days, ok := renewalPeriods[s.Frequency]; ok {
			s.RenewalDate = s.StartDate.AddDate(0, 0, days)
		}
	}
	if !s.RenewalDate.IsZero() && s.RenewalDate.Before(now) {
		s.Status = constant.SubscriptionExpired
	}
}
