// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InterviewsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whitelist_interviews_started_total",
			Help: "Total number of interview attempts started",
		},
	)

	InterviewsSuperseded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whitelist_interviews_superseded_total",
			Help: "Total number of prior attempts expired by a new start",
		},
	)

	AnswersAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whitelist_answers_accepted_total",
			Help: "Total number of answers accepted",
		},
	)

	AnswersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelist_answers_rejected_total",
			Help: "Total number of answers rejected by validation",
		},
		[]string{"question"},
	)

	ApplicationsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whitelist_applications_submitted_total",
			Help: "Total number of applications that reached SUBMITTED",
		},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelist_decisions_total",
			Help: "Total number of staff decisions applied",
		},
		[]string{"action"},
	)

	StaleDecisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whitelist_stale_decisions_total",
			Help: "Decision attempts rejected because the record was already decided",
		},
	)

	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whitelist_notify_failures_total",
			Help: "Best-effort applicant notifications that could not be delivered",
		},
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "whitelist_event_duration_seconds",
			Help: "Duration of platform event handling in seconds",
		},
		[]string{"route"},
	)
)
