package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed queries.
	OutcomeSuccess = "success"
	// OutcomeError labels failed queries (transport or pipeline issues).
	OutcomeError = "error"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagetrack",
			Name:      "queries_total",
			Help:      "Total number of queries handled, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stagetrack",
			Name:      "query_seconds",
			Help:      "End-to-end query latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	searchPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stagetrack",
			Name:      "search_pages_total",
			Help:      "Total search pages fetched while discovering candidatures.",
		},
	)

	historyFetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stagetrack",
			Name:      "history_fetch_failures_total",
			Help:      "History fetches that failed and were excluded from correlation.",
		},
	)
)

// Register attaches stagetrack collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		queriesTotal,
		queryDurationSeconds,
		searchPagesTotal,
		historyFetchFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveQuery records a query duration and outcome for an operation.
func ObserveQuery(operation string, duration time.Duration, outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	queriesTotal.WithLabelValues(operation, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	queryDurationSeconds.Observe(duration.Seconds())
}

// IncSearchPage counts one discovery search page.
func IncSearchPage() {
	searchPagesTotal.Inc()
}

// IncHistoryFetchFailure counts one excluded history fetch.
func IncHistoryFetchFailure() {
	historyFetchFailuresTotal.Inc()
}
