package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by route, method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveo_http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// AttributionsStarted counts attributions opened, by service type.
	AttributionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveo_attributions_started_total",
			Help: "Attributions opened after a successful payment.",
		},
		[]string{"service_type"},
	)

	// AttributionTransitions counts state changes by target status.
	AttributionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveo_attribution_transitions_total",
			Help: "Attribution state transitions by resulting status.",
		},
		[]string{"status"},
	)

	// ProviderResponses counts accept/refuse/cancel calls by outcome code.
	ProviderResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveo_provider_responses_total",
			Help: "Provider responses to mission invitations by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	BroadcastSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moveo_broadcast_size",
			Help:    "Number of providers invited per broadcast round.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	TimeToAttribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moveo_time_to_attribution_seconds",
			Help:    "Seconds between the start of an attribution and its acceptance.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	ProvidersBlacklisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moveo_providers_blacklisted_total",
			Help: "Providers banned after consecutive refusals.",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveo_notifications_sent_total",
			Help: "Notifications delivered to the transport, by type.",
		},
		[]string{"type"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveo_notifications_failed_total",
			Help: "Notifications the transport rejected, by type.",
		},
		[]string{"type"},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moveo_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full.",
		},
	)

	ExpirySweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveo_expiry_sweeps_total",
			Help: "Periodic expiry sweeps by result (ran, skipped, failed).",
		},
		[]string{"result"},
	)
)
