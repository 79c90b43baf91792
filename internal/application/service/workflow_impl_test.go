package service

import (
	"context"
	"path/filepath"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/domain/constant"
	"subscription-reminder/internal/domain/entity"
	"subscription-reminder/internal/infrastructure/database/sqlite"
	"subscription-reminder/internal/infrastructure/engine"
	"subscription-reminder/internal/infrastructure/metrics"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type timer struct {
	at time.Time
	fn func()
}

// manualWaker keeps armed timers until the test fires them.
type manualWaker struct {
	mu     sync.Mutex
	timers map[string]timer
}

func (w *manualWaker) ScheduleAt(key string, t time.Time, fn func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timers[key] = timer{at: t, fn: fn}
	return nil
}

func (w *manualWaker) Cancel(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.timers, key)
}

func (w *manualWaker) next(key string) (timer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.timers[key]
	delete(w.timers, key)
	return t, ok
}

type recordingNotifier struct {
	mu     sync.Mutex
	labels []string
}

func (n *recordingNotifier) SendReminder(_ context.Context, email dto.ReminderEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.labels = append(n.labels, email.Type)
	return nil
}

type e2e struct {
	db       *gorm.DB
	clock    time.Time
	waker    *manualWaker
	notifier *recordingNotifier
	svc      WorkflowService
	engine   *engine.Engine
}

func newE2E(t *testing.T, now time.Time) *e2e {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "reminder.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.CloseDB(db) })

	user := &entity.User{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(user).Error)
	sub := &entity.Subscription{
		ID:          "sub-1",
		Name:        "Netflix",
		Status:      constant.SubscriptionActive,
		RenewalDate: renewal,
		UserID:      user.ID,
	}
	require.NoError(t, db.Session(&gorm.Session{SkipHooks: true}).Create(sub).Error)

	x := &e2e{db: db, clock: now, notifier: &recordingNotifier{}}
	x.start()
	return x
}

// start wires a fresh engine and services on the database, like a process start.
func (x *e2e) start() {
	x.waker = &manualWaker{timers: map[string]timer{}}
	m := metrics.New()
	log := logger.NewNop()
	schedule, _ := entity.NewReminderSchedule(entity.DefaultReminderOffsets, time.UTC)

	var eng *engine.Engine
	eng = engine.New(
		sqlite.NewWorkflowRunRepository(x.db),
		sqlite.NewWorkflowStepRepository(x.db),
		x.waker, m, log,
		engine.WithClock(func() time.Time { return x.clock }),
		engine.WithRetryPolicy(engine.RetryPolicy{MaxRetries: 1, Base: time.Millisecond}),
		engine.WithDispatcher(func(runID string) { _ = eng.Execute(context.Background(), runID) }),
	)
	x.engine = eng
	reminders := NewReminderService(sqlite.NewSubscriptionRepository(x.db), x.notifier, schedule, m, log)
	x.svc = NewWorkflowService(eng, reminders, log)
}

// fire advances the clock to the run's armed timer and runs it.
func (x *e2e) fire(t *testing.T, runID string) {
	t.Helper()
	tm, ok := x.waker.next(runID)
	require.True(t, ok, "no timer armed for run %s", runID)
	x.clock = tm.at
	tm.fn()
}

func TestWorkflowService_RemindersEndToEnd(t *testing.T) {
	x := newE2E(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	resp, err := x.svc.TriggerReminders(ctx, dto.TriggerReminderRequest{SubscriptionID: "sub-1"})
	require.NoError(t, err)
	assert.True(t, resp.Created)

	run, err := x.svc.GetRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "sleeping", run.Status)

	again, err := x.svc.TriggerReminders(ctx, dto.TriggerReminderRequest{SubscriptionID: "sub-1"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, resp.RunID, again.RunID)

	for i := 0; i < 4; i++ {
		x.fire(t, resp.RunID)
	}

	run, err = x.svc.GetRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, []string{
		"7 days before reminder",
		"5 days before reminder",
		"2 days before reminder",
		"1 days before reminder",
	}, x.notifier.labels)
}

func TestWorkflowService_ResumeAfterCrashSendsOnce(t *testing.T) {
	x := newE2E(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	resp, err := x.svc.TriggerReminders(ctx, dto.TriggerReminderRequest{SubscriptionID: "sub-1"})
	require.NoError(t, err)
	x.fire(t, resp.RunID) // 7 days before
	require.Equal(t, []string{"7 days before reminder"}, x.notifier.labels)

	// The process dies while sleeping towards the 5-day reminder and comes back on its day.
	x.clock = time.Date(2025, 3, 5, 9, 30, 0, 0, time.UTC)
	x.start()
	require.NoError(t, x.svc.InitializeRuns(ctx))

	assert.Equal(t, []string{"7 days before reminder", "5 days before reminder"}, x.notifier.labels)
	run, err := x.svc.GetRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "sleeping", run.Status)
	require.NotNil(t, run.WakeAt)
	assert.True(t, time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC).Equal(*run.WakeAt))
}

func TestWorkflowService_ResumeSkipsMissedDay(t *testing.T) {
	x := newE2E(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	resp, err := x.svc.TriggerReminders(ctx, dto.TriggerReminderRequest{SubscriptionID: "sub-1"})
	require.NoError(t, err)
	x.fire(t, resp.RunID) // 7 days before
	require.Equal(t, []string{"7 days before reminder"}, x.notifier.labels)

	// Down through the whole 5-day reminder day: it is not sent late.
	x.clock = time.Date(2025, 3, 6, 10, 0, 0, 0, time.UTC)
	x.start()
	require.NoError(t, x.svc.InitializeRuns(ctx))

	assert.Equal(t, []string{"7 days before reminder"}, x.notifier.labels)
	run, err := x.svc.GetRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "sleeping", run.Status)
	require.NotNil(t, run.WakeAt)
	assert.True(t, time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC).Equal(*run.WakeAt))
	wake, armed := x.waker.next(resp.RunID)
	require.True(t, armed)
	assert.True(t, time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC).Equal(wake.at))
}

func TestWorkflowService_CancelRun(t *testing.T) {
	x := newE2E(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	resp, err := x.svc.TriggerReminders(ctx, dto.TriggerReminderRequest{SubscriptionID: "sub-1"})
	require.NoError(t, err)

	canceled, err := x.svc.CancelRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "canceled", canceled.Status)
	_, armed := x.waker.next(resp.RunID)
	assert.False(t, armed)

	_, err = x.svc.CancelRun(ctx, resp.RunID)
	assert.ErrorIs(t, err, appErrors.ErrRunFinished)

	// A canceled run no longer blocks a new one.
	next, err := x.svc.TriggerReminders(ctx, dto.TriggerReminderRequest{SubscriptionID: "sub-1"})
	require.NoError(t, err)
	assert.True(t, next.Created)
	assert.Empty(t, x.notifier.labels)
}

func TestWorkflowService_Validation(t *testing.T) {
	x := newE2E(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := x.svc.TriggerReminders(ctx, dto.TriggerReminderRequest{SubscriptionID: " "})
	assert.ErrorIs(t, err, appErrors.ErrInvalidPayload)

	_, err = x.svc.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrRunNotFound)
}
