package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesValidatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlhunt_queries_validated_total",
			Help: "SQL submissions that passed validation and were enqueued.",
		},
	)

	queriesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhunt_queries_rejected_total",
			Help: "SQL submissions rejected by the validator, by rule class.",
		},
		[]string{"rule"},
	)

	tasksFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhunt_tasks_finished_total",
			Help: "SQL tasks reaching a terminal state.",
		},
		[]string{"state"},
	)

	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlhunt_query_duration_seconds",
			Help:    "Wall-clock duration of learner query execution.",
			Buckets: prometheus.DefBuckets,
		},
	)

	tasksRequeuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlhunt_tasks_requeued_total",
			Help: "Tasks returned to the queue after a worker lease expired.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesValidatedTotal,
		queriesRejectedTotal,
		tasksFinishedTotal,
		queryDurationSeconds,
		tasksRequeuedTotal,
	)
}

func IncrementQueryValidated() {
	queriesValidatedTotal.Inc()
}

func IncrementQueryRejected(rule string) {
	queriesRejectedTotal.WithLabelValues(rule).Inc()
}

func IncrementTaskFinished(state string) {
	tasksFinishedTotal.WithLabelValues(state).Inc()
}

func ObserveQueryDuration(d time.Duration) {
	queryDurationSeconds.Observe(d.Seconds())
}

func AddTasksRequeued(count int) {
	tasksRequeuedTotal.Add(float64(count))
}
