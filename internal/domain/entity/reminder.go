package entity

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// DefaultReminderOffsets are the days before renewal at which reminders fire.
var DefaultReminderOffsets = []int{7, 5, 2, 1}

// ReminderEvent is one reminder derived from a renewal date.
type ReminderEvent struct {
	DaysBefore int
	Label      string
	Date       time.Time
}

// ReminderSchedule is an immutable ordered list of reminder offsets together with the
// location used for calendar-day comparisons.
type ReminderSchedule struct {
	offsets  []int
	location *time.Location
}

// NewReminderSchedule validates offsets (non-empty, positive, strictly descending) and
// copies them so later changes by the caller cannot reorder a running schedule.
func NewReminderSchedule(offsets []int, loc *time.Location) (ReminderSchedule, error) {
	if len(offsets) == 0 {
		return ReminderSchedule{}, fmt.Errorf("reminder schedule needs at least one offset")
	}
	for i, d := range offsets {
		if d <= 0 {
			return ReminderSchedule{}, fmt.Errorf("reminder offset %d must be positive", d)
		}
		if i > 0 && d >= offsets[i-1] {
			return ReminderSchedule{}, fmt.Errorf("reminder offsets must be strictly descending, got %d after %d", d, offsets[i-1])
		}
	}
	if loc == nil {
		loc = time.Local
	}
	cp := make([]int, len(offsets))
	copy(cp, offsets)
	return ReminderSchedule{offsets: cp, location: loc}, nil
}

// Offsets returns a copy of the configured offsets.
func (s ReminderSchedule) Offsets() []int {
	cp := make([]int, len(s.offsets))
	copy(cp, s.offsets)
	return cp
}

// Location returns the timezone used for day arithmetic.
func (s ReminderSchedule) Location() *time.Location {
	if s.location == nil {
		return time.Local
	}
	return s.location
}

// Events computes the reminders for a renewal date in schedule order.
// The result depends only on renewalDate and the offsets. Dates are truncated to the
// second, the precision of wake-up timers, so a timer never lands on the next day.
func (s ReminderSchedule) Events(renewalDate time.Time) []ReminderEvent {
	renewal := renewalDate.Truncate(time.Second).In(s.Location())
	events := make([]ReminderEvent, len(s.offsets))
	for i, d := range s.offsets {
		events[i] = ReminderEvent{
			DaysBefore: d,
			Label:      ReminderLabel(d),
			Date:       renewal.AddDate(0, 0, -d),
		}
	}
	return events
}

// SameDay reports whether a and b fall on the same calendar day in the schedule's location.
func (s ReminderSchedule) SameDay(a, b time.Time) bool {
	loc := s.Location()
	return now.With(a.In(loc)).BeginningOfDay().Equal(now.With(b.In(loc)).BeginningOfDay())
}

// ReminderLabel is the memoization key of a reminder, stable across resumes.
func ReminderLabel(daysBefore int) string {
	return fmt.Sprintf("%d days before reminder", daysBefore)
}

// ParseReminderLabel extracts the offset from a label built by ReminderLabel.
func ParseReminderLabel(label string) (int, bool) {
	var d int
	if _, err := fmt.Sscanf(label, "%d days before reminder", &d); err != nil || d <= 0 {
		return 0, false
	}
	if ReminderLabel(d) != label {
		return 0, false
	}
	return d, true
}
