package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_store_operations_total",
		Help: "Notification store operations by outcome.",
	}, []string{"op", "outcome"})

	storeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_store_retries_total",
		Help: "Retries caused by transient lock contention.",
	}, []string{"op"})

	broadcastRecipients = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_broadcast_recipients_total",
		Help: "Broadcast recipients by result.",
	}, []string{"result"})

	maintenanceAffected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_maintenance_affected_total",
		Help: "Records soft-deleted or purged by the maintenance sweeper.",
	}, []string{"phase"})

	maintenanceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_maintenance_duration_seconds",
		Help:    "Duration of maintenance phases in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"phase", "status"})
)

func recordStoreOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOperations.WithLabelValues(op, outcome).Inc()
}
