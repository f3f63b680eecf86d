// Package metrics defines the Prometheus collectors of the API server.
//
// Collectors are registered on the default registry at init and exposed by
// the server on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests.
	// Labels: method, route (mux pattern), status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vyaparitrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks request latency in seconds.
	// Labels: method, route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vyaparitrack_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// TableQueries counts table view renders.
	// Labels: resource, outcome (rows/empty/no_match).
	TableQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vyaparitrack_table_queries_total",
			Help: "Total number of table view queries",
		},
		[]string{"resource", "outcome"},
	)

	// TableSourceRows tracks the size of the collections fed to the table
	// engine.
	TableSourceRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vyaparitrack_table_source_rows",
			Help:    "Number of records supplied to a table view",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"resource"},
	)

	// RateLimited counts requests rejected by a rate limit tier.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vyaparitrack_rate_limited_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"tier"},
	)

	// LowStockAlerts counts products that reached their reorder level on a
	// sale.
	LowStockAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vyaparitrack_low_stock_alerts_total",
			Help: "Total number of products that reached their reorder level",
		},
	)
)

// RegisterActiveSessions exposes the number of active sessions as reported
// by fn.
func RegisterActiveSessions(fn func() int) prometheus.GaugeFunc {
	return promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "vyaparitrack_active_sessions",
			Help: "Number of active login sessions",
		},
		func() float64 { return float64(fn()) },
	)
}
