package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dependencyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_worker_dependency_duration_seconds",
		Help:    "Duration of outbound dependency calls (store, publisher).",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "target", "success"})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_worker_messages_total",
		Help: "Queue messages handled, by topic and outcome.",
	}, []string{"topic", "result"})
)

// CountMessage records the outcome of one dequeued message. Results:
// ok, dropped, dlq, retried, failed.
func CountMessage(topic, result string) {
	messagesTotal.WithLabelValues(topic, result).Inc()
}
