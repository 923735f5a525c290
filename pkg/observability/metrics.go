// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the portier proxy.
package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthBuckets defines histogram buckets suited for authentication and
// identity-backend latencies, ranging from 1ms to 10s.
var AuthBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portier_request_duration_seconds",
			Help:    "Request duration",
			Buckets: AuthBuckets,
		},
		[]string{"method"},
	)

	// AuthenticationsTotal counts authentication attempts by outcome and
	// the handler that supplied the credentials.
	AuthenticationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_authentications_total",
			Help: "Authentication attempts",
		},
		[]string{"outcome", "handler"},
	)

	// ChallengesTotal counts issued challenges by disposition.
	ChallengesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_challenges_total",
			Help: "Issued challenges",
		},
		[]string{"disposition"},
	)

	// ResolveDuration records identity resolution latency in seconds.
	ResolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portier_resolve_duration_seconds",
			Help:    "Identity resolution latency",
			Buckets: AuthBuckets,
		},
		[]string{"outcome"},
	)

	// RegisteredHandlers tracks the number of registered authentication
	// handlers.
	RegisteredHandlers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portier_registered_handlers",
			Help: "Registered authentication handlers",
		},
	)

	// SessionOpsTotal counts session store operations by operation and
	// outcome.
	SessionOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_session_ops_total",
			Help: "Session store operations",
		},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthenticationsTotal,
		ChallengesTotal,
		ResolveDuration,
		RegisteredHandlers,
		SessionOpsTotal,
	)
}
