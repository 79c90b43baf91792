package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subscription_reminder"

// Metrics holds the collectors of the service, registered on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	StepsTotal    *prometheus.CounterVec
	RemindersSent *prometheus.CounterVec
	RunsSkipped   *prometheus.CounterVec
}

// New creates the collectors. Process and Go runtime collectors are included.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Workflow executions by final status of the execution (completed, sleeping, failed).",
		}, []string{"workflow", "status"}),
		StepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_steps_total",
			Help:      "Memoized steps by kind and outcome (executed, replayed, failed).",
		}, []string{"kind", "outcome"}),
		RemindersSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications delivered, by label.",
		}, []string{"label"}),
		RunsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_runs_skipped_total",
			Help:      "Reminder runs stopped before scheduling, by reason.",
		}, []string{"reason"}),
	}
}
