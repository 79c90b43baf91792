package mail

import (
	"fmt"
	"html/template"
	"subscription-reminder/internal/domain/entity"
	appErrors "subscription-reminder/internal/pkg/errors"
	"time"
)

// reminderData is rendered into the reminder body.
type reminderData struct {
	UserName      string
	Subscription  string
	RenewalDate   string
	Plan          string
	Price         string
	PaymentMethod string
	DaysLeft      int
}

var subjects = map[int]string{
	7: "📅 Reminder: Your %s Subscription Renews in 7 Days!",
	5: "⏳ %s Renews in 5 Days. Stay Subscribed!",
	2: "🚀 2 Days Left! %s Subscription Renewal",
	1: "⚡ Final Reminder: %s Renews Tomorrow!",
}

const genericSubject = "Your %s subscription renews in %d days"

var bodyTemplate = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto;">
  <p>Hello <strong>{{.UserName}}</strong>,</p>
  <p>Your <strong>{{.Subscription}}</strong> subscription is set to renew on <strong>{{.RenewalDate}}</strong> ({{.DaysLeft}} {{if eq .DaysLeft 1}}day{{else}}days{{end}} from today).</p>
  <table style="width: 100%; border-collapse: collapse;">
    <tr><td><strong>Plan:</strong></td><td>{{.Plan}}</td></tr>
    <tr><td><strong>Price:</strong></td><td>{{.Price}}</td></tr>
    <tr><td><strong>Payment Method:</strong></td><td>{{.PaymentMethod}}</td></tr>
  </table>
  <p>If you'd like to make changes or cancel, you can do so from your account settings before the renewal date.</p>
  <p>Best regards,<br>The Subscription Reminder Team</p>
</div>`))

// renderSubject picks the subject for a reminder label.
func renderSubject(label, subscriptionName string) (string, int, error) {
	days, ok := entity.ParseReminderLabel(label)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", appErrors.ErrUnknownReminderType, label)
	}
	if format, ok := subjects[days]; ok {
		return fmt.Sprintf(format, subscriptionName), days, nil
	}
	return fmt.Sprintf(genericSubject, subscriptionName, days), days, nil
}

func newReminderData(s *entity.Subscription, days int, loc *time.Location) reminderData {
	data := reminderData{
		Subscription:  s.Name,
		RenewalDate:   s.RenewalDate.In(loc).Format("Jan 2, 2006"),
		Plan:          string(s.Frequency),
		Price:         fmt.Sprintf("%s %.2f (%s)", s.Currency, s.Price, s.Frequency),
		PaymentMethod: s.PaymentMethod,
		DaysLeft:      days,
	}
	if s.User != nil {
		data.UserName = s.User.Name
	}
	return data
}
