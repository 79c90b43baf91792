package line

import (
	"context"
	"fmt"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/domain/entity"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Client pushes reminder messages to LINE users.
type Client struct {
	*linebot.Client
	location *time.Location
	log      logger.Logger
}

// NewClient creates a LINE Bot client from the channel credentials.
func NewClient(channelSecret, channelToken string, loc *time.Location, log logger.Logger, options ...linebot.ClientOption) (*Client, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, fmt.Errorf("%w: LINE channel secret and access token must be set", appErrors.ErrInvalidConfiguration)
	}

	bot, err := linebot.New(channelSecret, channelToken, options...)
	if err != nil {
		log.Error("🔴 ERROR: Failed to create LINE Bot client", err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrInvalidConfiguration, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	log.Info("Successfully created LINE Bot client.")
	return &Client{Client: bot, location: loc, log: log}, nil
}

// PushMessages sends one or more messages using the PushMessage API.
func (c *Client) PushMessages(ctx context.Context, to string, messages ...linebot.SendingMessage) error {
	if _, err := c.PushMessage(to, messages...).WithContext(ctx).Do(); err != nil {
		return err
	}
	c.log.Debug("Successfully sent push message.")
	return nil
}

// SendReminder pushes a short text reminder to the subscription owner. Owners without a
// linked LINE account are skipped.
func (c *Client) SendReminder(ctx context.Context, email dto.ReminderEmail) error {
	s := email.Subscription
	if s == nil || s.User == nil || s.User.LineUserID == nil || *s.User.LineUserID == "" {
		return nil
	}
	days, ok := entity.ParseReminderLabel(email.Type)
	if !ok {
		return fmt.Errorf("%w: %q", appErrors.ErrUnknownReminderType, email.Type)
	}

	text := fmt.Sprintf("🔔 %s renews on %s (in %d days): %s %.2f, paid with %s.",
		s.Name, s.RenewalDate.In(c.location).Format("Jan 2, 2006"), days, s.Currency, s.Price, s.PaymentMethod)
	if err := c.PushMessages(ctx, *s.User.LineUserID, linebot.NewTextMessage(text)); err != nil {
		return fmt.Errorf("%w: line push: %v", appErrors.ErrNotification, err)
	}
	return nil
}
