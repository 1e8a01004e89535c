// Package metric provides Prometheus metrics for Snapfold.
//
// It exposes instrumentation for folder lifecycle, message traffic,
// upload and download volumes, the sweep loop, and the HTTP surface.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snapfold"

// Metrics holds all application metrics, registered on a private
// prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	// Folder lifecycle
	FoldersActive  prometheus.Gauge
	FoldersCreated prometheus.Counter
	FoldersDeleted prometheus.Counter

	// Message traffic
	MessagesTotal *prometheus.CounterVec

	// File traffic
	UploadBytes   prometheus.Counter
	DownloadBytes prometheus.Counter

	// Sweep loop
	SweepCycles    prometheus.Counter
	SweepDuration  prometheus.Histogram
	SweepLastFound prometheus.Gauge

	// HTTP surface
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Live connections
	ConnectionsActive prometheus.Gauge
}

// New creates the metrics set on a fresh registry seeded with the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		FoldersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "folders_active",
			Help:      "Folders currently loaded in the registry.",
		}),
		FoldersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_created_total",
			Help:      "Folders created since start.",
		}),
		FoldersDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_deleted_total",
			Help:      "Expired folders deleted by the sweep loop.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages accepted into folders, by type.",
		}, []string{"type"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "File payload bytes accepted from clients.",
		}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "File payload bytes served to clients.",
		}),
		SweepCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_cycles_total",
			Help:      "Completed sweep cycles.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_cycle_seconds",
			Help:      "Duration of sweep cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		SweepLastFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_last_found",
			Help:      "Folders examined by the most recent sweep cycle.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status class.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Live websocket connections.",
		}),
	}

	reg.MustRegister(
		m.FoldersActive,
		m.FoldersCreated,
		m.FoldersDeleted,
		m.MessagesTotal,
		m.UploadBytes,
		m.DownloadBytes,
		m.SweepCycles,
		m.SweepDuration,
		m.SweepLastFound,
		m.RequestsTotal,
		m.RequestDuration,
		m.ConnectionsActive,
	)
	return m
}

// Registry exposes the underlying registry so other components can add
// their own collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
