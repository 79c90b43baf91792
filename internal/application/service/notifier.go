package service

import (
	"context"
	"fmt"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/pkg/logger"
)

type fanoutNotifier struct {
	primary     ReminderNotifier
	secondaries []ReminderNotifier
	log         logger.Logger
}

// NewFanoutNotifier delivers each reminder through primary and then through every
// secondary channel. Only a primary failure is reported; secondary failures are logged
// so a broken side channel never causes the reminder to be sent twice.
func NewFanoutNotifier(primary ReminderNotifier, log logger.Logger, secondaries ...ReminderNotifier) ReminderNotifier {
	return &fanoutNotifier{primary: primary, secondaries: secondaries, log: log}
}

func (n *fanoutNotifier) SendReminder(ctx context.Context, email dto.ReminderEmail) error {
	if err := n.primary.SendReminder(ctx, email); err != nil {
		return err
	}
	for _, s := range n.secondaries {
		if err := s.SendReminder(ctx, email); err != nil {
			n.log.Warn(fmt.Sprintf("Secondary delivery of %s failed: %v", email.Type, err))
		}
	}
	return nil
}
