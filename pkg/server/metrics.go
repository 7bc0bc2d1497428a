package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the viewer.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TreeNodes       prometheus.Gauge
	Readings        prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_viewer_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coverage_viewer_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	treeNodes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coverage_viewer_tree_nodes",
		Help: "Number of points in the loaded coverage tree",
	})

	readings := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coverage_viewer_readings",
		Help: "Number of readings the coverage tree was built from",
	})

	reg.MustRegister(requests, duration, treeNodes, readings)

	return &Metrics{
		Requests:        requests,
		RequestDuration: duration,
		TreeNodes:       treeNodes,
		Readings:        readings,
	}
}
