// Package metrics holds the prometheus instrumentation of the gateway.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal counts accepted client connections.
	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postduck_connections_total",
			Help: "Total number of accepted client connections",
		},
	)

	// ActiveSessions tracks the number of live sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "postduck_active_sessions",
			Help: "Number of currently active client sessions",
		},
	)

	// QueriesTotal counts executed queries by statement kind.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postduck_queries_total",
			Help: "Total number of executed queries",
		},
		[]string{"kind"},
	)

	// QueryDuration tracks query latency by statement kind.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postduck_query_duration_seconds",
			Help:    "Query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// EngineErrors counts queries rejected by the engine.
	EngineErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postduck_engine_errors_total",
			Help: "Total number of queries rejected by the engine",
		},
	)
)

var initOnce sync.Once

// Init registers all metrics with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			ConnectionsTotal,
			ActiveSessions,
			QueriesTotal,
			QueryDuration,
			EngineErrors,
		)
	})
}

// Handler returns the HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
