// Package metrics exposes Prometheus counters for the ticketing core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_registrations_total",
			Help: "Registration attempts by kind and outcome code",
		},
		[]string{"kind", "outcome"},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_checkins_total",
			Help: "Ticket scans by outcome",
		},
		[]string{"outcome"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_notifications_total",
			Help: "Ticket email deliveries by status",
		},
		[]string{"status"},
	)

	txDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_atomic_operation_seconds",
			Help:    "Duration of atomic ticketing operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)
)

// TrackRegistration counts one register/createTeam/joinTeam/cancel attempt.
// outcome is "ok" or the business error code.
func TrackRegistration(kind, outcome string) {
	registrations.WithLabelValues(kind, outcome).Inc()
}

// TrackCheckIn counts one scan outcome.
func TrackCheckIn(outcome string) {
	checkIns.WithLabelValues(outcome).Inc()
}

// TrackNotification counts one delivery attempt ("enqueued", "sent", "failed", "dropped").
func TrackNotification(status string) {
	notifications.WithLabelValues(status).Inc()
}

// ObserveOperation records how long an atomic operation took, retries included.
func ObserveOperation(operation string, seconds float64) {
	txDuration.WithLabelValues(operation).Observe(seconds)
}
