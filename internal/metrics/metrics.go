// Package metrics holds the Prometheus collectors for client construction
// and for requests issued through instrumented clients.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClientsConstructedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unsafehttp_clients_constructed_total",
			Help: "Total number of HTTP clients constructed per trust and hostname policy",
		},
		[]string{"trust", "hostname"},
	)

	ConstructionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unsafehttp_client_construction_failures_total",
			Help: "Total number of failed client constructions",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unsafehttp_requests_total",
			Help: "Total number of requests per trust policy, status code and method",
		},
		[]string{"trust", "code", "method"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unsafehttp_request_duration_seconds",
			Help:    "Request duration in seconds per trust policy",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trust"},
	)
)

// InstrumentRoundTripper wraps next so that every request is counted and
// timed under the given trust policy label.
func InstrumentRoundTripper(trust string, next http.RoundTripper) http.RoundTripper {
	labels := prometheus.Labels{"trust": trust}
	return promhttp.InstrumentRoundTripperCounter(
		RequestsTotal.MustCurryWith(labels),
		promhttp.InstrumentRoundTripperDuration(
			RequestDurationSeconds.MustCurryWith(labels),
			next,
		),
	)
}
