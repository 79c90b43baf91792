package scheduler

import (
	"testing"
	"time"

	"subscription-reminder/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCronSpec(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "whole second", at: time.Date(2025, 3, 3, 9, 30, 15, 0, loc), want: "15 30 9 3 3 *"},
		{name: "rounds up fraction", at: time.Date(2025, 3, 3, 9, 30, 15, 1, loc), want: "16 30 9 3 3 *"},
		{name: "rounds into next day", at: time.Date(2025, 3, 3, 23, 59, 59, 500, loc), want: "0 0 0 4 3 *"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatCronSpec(tc.at, loc))
		})
	}
}

func TestScheduler_DueTimerRunsImmediately(t *testing.T) {
	s := NewScheduler(time.UTC, logger.NewNop())
	defer s.Stop()

	fired := make(chan struct{}, 1)
	require.NoError(t, s.ScheduleAt("run-1", time.Now().Add(-time.Minute), func() { fired <- struct{}{} }))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("due timer did not fire")
	}
	assert.False(t, s.Pending("run-1"))
}

func TestScheduler_FiresOnceAndForgetsKey(t *testing.T) {
	s := NewScheduler(time.UTC, logger.NewNop())
	defer s.Stop()

	fired := make(chan struct{}, 2)
	require.NoError(t, s.ScheduleAt("run-1", time.Now().Add(1100*time.Millisecond), func() { fired <- struct{}{} }))
	assert.True(t, s.Pending("run-1"))
	assert.Len(t, s.GetEntries(), 1)

	select {
	case <-fired:
	case <-time.After(4 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Eventually(t, func() bool { return !s.Pending("run-1") && len(s.GetEntries()) == 0 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_RescheduleAndCancel(t *testing.T) {
	s := NewScheduler(time.UTC, logger.NewNop())
	defer s.Stop()

	noop := func() {}
	require.NoError(t, s.ScheduleAt("run-1", time.Now().Add(time.Hour), noop))
	require.NoError(t, s.ScheduleAt("run-1", time.Now().Add(2*time.Hour), noop))
	assert.Len(t, s.GetEntries(), 1)

	s.Cancel("run-1")
	assert.False(t, s.Pending("run-1"))
	assert.Empty(t, s.GetEntries())

	// Cancelling an unknown key is a no-op.
	s.Cancel("run-2")
}
