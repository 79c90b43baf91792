package scheduler

import (
	"fmt"
	"subscription-reminder/internal/pkg/logger"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler arms one-off timers on top of a cron scheduler.
// Each timer is identified by a key; arming a key again replaces its previous timer.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	log      logger.Logger
	mu       sync.Mutex // Protect jobs access
	jobs     map[string]cron.EntryID
}

// NewScheduler creates and starts a cron scheduler with seconds precision in loc.
func NewScheduler(loc *time.Location, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))
	c.Start()
	log.Info("Cron scheduler started.")
	return &Scheduler{
		cron:     c,
		location: loc,
		log:      log,
		jobs:     make(map[string]cron.EntryID),
	}
}

// formatCronSpec generates a cron spec string for a specific time.
// Sub-second parts are rounded up so the job never fires before t.
func formatCronSpec(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	if t.Nanosecond() > 0 {
		t = t.Truncate(time.Second).Add(time.Second)
	}
	// Seconds Minutes Hours DayOfMonth Month DayOfWeek
	return fmt.Sprintf("%d %d %d %d %d *", t.Second(), t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}

// ScheduleAt runs fn once at t under key. A t that is not in the future runs fn right away
// on its own goroutine.
func (s *Scheduler) ScheduleAt(key string, t time.Time, fn func()) error {
	s.Cancel(key)

	if !t.After(time.Now()) {
		s.log.Debug(fmt.Sprintf("Timer %s is already due (%v), running now", key, t))
		go fn()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id cron.EntryID
	id, err := s.cron.AddFunc(formatCronSpec(t, s.location), func() {
		s.mu.Lock()
		if current, ok := s.jobs[key]; ok && current == id {
			delete(s.jobs, key)
		}
		s.mu.Unlock()
		// One-off: the spec would otherwise repeat next year.
		s.cron.Remove(id)
		fn()
	})
	if err != nil {
		s.log.Error("🔴 ERROR: Failed to add cron job", err)
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.jobs[key] = id
	s.log.Debug(fmt.Sprintf("Added timer %s with job ID %d at %v", key, id, t))
	return nil
}

// Cancel removes the pending timer for key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.jobs[key]; ok {
		s.cron.Remove(id)
		delete(s.jobs, key)
		s.log.Debug(fmt.Sprintf("Removed timer %s (job ID %d)", key, id))
	}
}

// Pending reports whether a timer is armed for key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}

// Stop stops the cron scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Cron scheduler stopped.")
}

// GetEntries returns the list of scheduled entries. Useful for debugging.
func (s *Scheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
