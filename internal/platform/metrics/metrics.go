package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_operations_total",
		Help: "Wallet ledger operations by operation and outcome (applied, noop, rejected, error).",
	}, []string{"operation", "outcome"})

	expiredGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_expired_grants_total",
		Help: "Earn grants finalized to EXPIRED by the expiry job.",
	})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallet_operation_duration_seconds",
		Help:    "Latency of wallet ledger operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// RecordOperation counts one ledger operation outcome.
func RecordOperation(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordExpiredGrant counts one grant finalized by the expiry job.
func RecordExpiredGrant() {
	expiredGrantsTotal.Inc()
}

// ObserveDuration records the latency of one ledger operation.
func ObserveDuration(operation string, seconds float64) {
	operationDuration.WithLabelValues(operation).Observe(seconds)
}
