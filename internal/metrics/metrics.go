// Package metrics declares the prometheus collectors shared by the HTTP layer,
// the NAS client and the job services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// NASRequestsTotal counts storage API calls; result is ok or the numeric
	// status / "transport" on failure.
	NASRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nas_requests_total",
			Help: "Storage API calls by function and result",
		},
		[]string{"func", "result"},
	)

	NASReauthTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nas_reauth_total",
		Help: "Storage API re-authentications after session expiry",
	})

	NASMoveRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nas_move_retries_total",
		Help: "Move attempts retried after a transient storage error",
	})

	FileTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_transitions_total",
			Help: "Successful file lifecycle transitions by action",
		},
		[]string{"action"},
	)
)
