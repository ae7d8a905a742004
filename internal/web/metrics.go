package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Error type label values.
const (
	ErrorTypeDB          = "db_error"
	ErrorTypeRender      = "render_error"
	ErrorTypeRateLimited = "rate_limited"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_dashboard_requests_total",
		Help: "Total number of dashboard HTTP requests",
	}, []string{"route", "status"})

	latencyHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hotel_dashboard_latency_seconds",
		Help:    "Latency of dashboard HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	resultRowsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hotel_dashboard_result_rows",
		Help: "Rows returned by the last successful request per route",
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_dashboard_errors_total",
		Help: "Total number of dashboard errors",
	}, []string{"type"})
)
