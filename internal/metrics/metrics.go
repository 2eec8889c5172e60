package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CasesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gryork_cases_created_total",
			Help: "Total number of CWCRF cases created",
		},
	)

	CaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gryork_case_transitions_total",
			Help: "Total number of committed case status transitions",
		},
		[]string{"from", "to"},
	)

	CaseTransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gryork_case_transitions_rejected_total",
			Help: "Total number of refused case status changes",
		},
		[]string{"reason"},
	)

	QuotationsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gryork_quotations_submitted_total",
			Help: "Total number of NBFC quotations submitted",
		},
	)

	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gryork_audit_write_failures_total",
			Help: "Total number of audit log entries that could not be stored",
		},
	)

	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gryork_event_publish_failures_total",
			Help: "Total number of lifecycle events that could not be published",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gryork_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

const (
	ReasonInvalidTransition = "invalid_transition"
	ReasonInvalidState      = "invalid_state"
	ReasonConflict          = "conflict"
	ReasonAlreadySelected   = "already_selected"
)
