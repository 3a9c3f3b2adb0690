package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	assignmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "assignment",
		Name:      "outcomes_total",
		Help:      "Total number of assign/end attempts broken down by operation and outcome code.",
	}, []string{"operation", "outcome"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of Org write conflicts broken down by kind.",
	}, []string{"kind"})

	txRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "tx",
		Name:      "retries_total",
		Help:      "Total number of transaction retries caused by lock contention, by SQLSTATE.",
	}, []string{"sqlstate"})

	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Total number of Org cache lookups broken down by cache and hit/miss.",
	}, []string{"cache", "result"})

	outboxPublish = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "outbox",
		Name:      "publish_total",
		Help:      "Total number of outbox publish attempts broken down by result (sent, failed, dead).",
	}, []string{"result"})

	cacheInvalidate = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "cache",
		Name:      "invalidate_total",
		Help:      "Total number of Org cache invalidations broken down by reason.",
	}, []string{"reason"})
)

func RecordAssignmentOutcome(operation, outcome string) {
	if outcome == "" {
		outcome = "ok"
	}
	assignmentOutcomes.WithLabelValues(operation, outcome).Inc()
}

func RecordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	writeConflicts.WithLabelValues(kind).Inc()
}

func RecordTxRetry(sqlstate string) {
	txRetries.WithLabelValues(sqlstate).Inc()
}

func RecordCacheRequest(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.WithLabelValues(cache, result).Inc()
}

func RecordCacheInvalidate(reason string) {
	if reason == "" {
		reason = "manual"
	}
	cacheInvalidate.WithLabelValues(reason).Inc()
}

func RecordOutboxPublish(result string) {
	outboxPublish.WithLabelValues(result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
