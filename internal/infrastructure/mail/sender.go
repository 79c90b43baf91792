// Package mail delivers reminder emails over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"subscription-reminder/internal/application/dto"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Transport sends prepared messages. *gomail.Client satisfies it.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Config holds the SMTP settings of the sender.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Sender renders reminder emails and hands them to a Transport.
type Sender struct {
	transport Transport
	from      string
	location  *time.Location
	log       logger.Logger
}

// NewClient creates an SMTP client. Authentication is enabled when a username is set.
func NewClient(cfg Config) (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(30 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: smtp client: %v", appErrors.ErrInvalidConfiguration, err)
	}
	return client, nil
}

// NewSender creates a Sender. Dates in the body are shown in loc.
func NewSender(transport Transport, from string, loc *time.Location, log logger.Logger) *Sender {
	if loc == nil {
		loc = time.UTC
	}
	return &Sender{transport: transport, from: from, location: loc, log: log}
}

// SendReminder renders and sends the reminder for email.Type.
func (s *Sender) SendReminder(ctx context.Context, email dto.ReminderEmail) error {
	msg, err := s.buildMessage(email)
	if err != nil {
		return err
	}
	if err := s.transport.DialAndSendWithContext(ctx, msg); err != nil {
		s.log.Error(fmt.Sprintf("Failed to send %s to %s", email.Type, email.To), err)
		return fmt.Errorf("%w: %v", appErrors.ErrNotification, err)
	}
	s.log.Info(fmt.Sprintf("Sent %s to %s", email.Type, email.To))
	return nil
}

func (s *Sender) buildMessage(email dto.ReminderEmail) (*gomail.Msg, error) {
	if email.To == "" {
		return nil, fmt.Errorf("%w: missing recipient", appErrors.ErrNotification)
	}
	if email.Subscription == nil {
		return nil, errors.New("reminder email without subscription")
	}

	subject, days, err := renderSubject(email.Type, email.Subscription.Name)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("%w: sender address: %v", appErrors.ErrInvalidConfiguration, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("%w: recipient address: %v", appErrors.ErrNotification, err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(bodyTemplate, newReminderData(email.Subscription, days, s.location)); err != nil {
		return nil, fmt.Errorf("%w: render body: %v", appErrors.ErrNotification, err)
	}
	return msg, nil
}
