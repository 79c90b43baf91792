package mail

import (
	"bytes"
	"context"
	"errors"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/domain/entity"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

type fakeTransport struct {
	sent []*gomail.Msg
	err  error
}

func (f *fakeTransport) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func testSubscription() *entity.Subscription {
	return &entity.Subscription{
		ID:            "sub-1",
		Name:          "Netflix",
		Price:         15.99,
		Currency:      "USD",
		Frequency:     entity.FrequencyMonthly,
		PaymentMethod: "Credit Card",
		RenewalDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		User:          &entity.User{Name: "Alice", Email: "alice@example.com"},
	}
}

func TestSender_SendReminder(t *testing.T) {
	transport := &fakeTransport{}
	sender := NewSender(transport, "reminders@example.com", time.UTC, logger.NewNop())

	err := sender.SendReminder(context.Background(), dto.ReminderEmail{
		To:           "alice@example.com",
		Type:         entity.ReminderLabel(7),
		Subscription: testSubscription(),
	})
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)

	msg := transport.sent[0]
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rcpts)
	assert.Equal(t, []string{"📅 Reminder: Your Netflix Subscription Renews in 7 Days!"}, msg.GetGenHeader(gomail.HeaderSubject))

	var buf bytes.Buffer
	require.NoError(t, bodyTemplate.Execute(&buf, newReminderData(testSubscription(), 7, time.UTC)))
	body := buf.String()
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "Mar 10, 2025")
	assert.Contains(t, body, "USD 15.99 (monthly)")
}

func TestSender_UnknownReminderType(t *testing.T) {
	transport := &fakeTransport{}
	sender := NewSender(transport, "reminders@example.com", time.UTC, logger.NewNop())

	err := sender.SendReminder(context.Background(), dto.ReminderEmail{
		To:           "alice@example.com",
		Type:         "tomorrow reminder",
		Subscription: testSubscription(),
	})
	assert.ErrorIs(t, err, appErrors.ErrUnknownReminderType)
	assert.Empty(t, transport.sent)
}

func TestSender_MissingRecipient(t *testing.T) {
	transport := &fakeTransport{}
	sender := NewSender(transport, "reminders@example.com", time.UTC, logger.NewNop())

	err := sender.SendReminder(context.Background(), dto.ReminderEmail{
		Type:         entity.ReminderLabel(1),
		Subscription: testSubscription(),
	})
	assert.ErrorIs(t, err, appErrors.ErrNotification)
	assert.Empty(t, transport.sent)
}

func TestSender_TransportFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection refused")}
	sender := NewSender(transport, "reminders@example.com", time.UTC, logger.NewNop())

	err := sender.SendReminder(context.Background(), dto.ReminderEmail{
		To:           "alice@example.com",
		Type:         entity.ReminderLabel(2),
		Subscription: testSubscription(),
	})
	assert.ErrorIs(t, err, appErrors.ErrNotification)
}

func TestRenderSubject(t *testing.T) {
	subject, days, err := renderSubject(entity.ReminderLabel(1), "Spotify")
	require.NoError(t, err)
	assert.Equal(t, 1, days)
	assert.Equal(t, "⚡ Final Reminder: Spotify Renews Tomorrow!", subject)

	subject, days, err = renderSubject(entity.ReminderLabel(3), "Spotify")
	require.NoError(t, err)
	assert.Equal(t, 3, days)
	assert.Equal(t, "Your Spotify subscription renews in 3 days", subject)
}
