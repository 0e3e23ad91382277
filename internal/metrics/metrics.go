package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	syncOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calsync",
			Name:      "sync_operations_total",
			Help:      "Sync operations by type and terminal outcome.",
		},
		[]string{"type", "outcome"},
	)

	syncRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calsync",
			Name:      "sync_retries_total",
			Help:      "Messages republished onto the retry queue.",
		},
	)

	rateLimitDenials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calsync",
			Name:      "rate_limit_denials_total",
			Help:      "Deliveries denied by the per-user rate limiter.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(syncOperations, syncRetries, rateLimitDenials)
	})
}

// Outcome labels for IncOperation.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// IncOperation counts a terminal outcome for an operation type.
func IncOperation(opType, outcome string) {
	syncOperations.WithLabelValues(opType, outcome).Inc()
}

// IncRetry counts a scheduled redelivery.
func IncRetry() {
	syncRetries.Inc()
}

// IncRateLimited counts a limiter denial.
func IncRateLimited() {
	rateLimitDenials.Inc()
}
