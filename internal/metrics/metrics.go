// Package metrics holds the Prometheus instruments shared by the server and
// the HTTP middleware.  All collectors are registered with the default
// registry at import time; main exposes them through promhttp on the
// optional metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasia_http_requests_total",
			Help: "Cumulative number of HTTP requests by status code, method, and route.",
		}, []string{"code", "method", "route"})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fantasia_http_request_duration_seconds",
			Help:    "Time spent producing HTTP responses.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

	ListenersBound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fantasia_listeners_bound",
			Help: "Number of sockets currently accepting connections.",
		})

	BindErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasia_bind_errors_total",
			Help: "Cumulative number of addresses that failed to bind.",
		})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ListenersBound,
		BindErrorsTotal,
	)
}
