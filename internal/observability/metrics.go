// Package observability holds the Prometheus metrics recorded by a fetch run.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smfetch"

// Search outcomes.
const (
	OutcomeMatch     = "match"
	OutcomeNoRecords = "no_records"
	OutcomeNoMatch   = "no_match"
	OutcomeError     = "error"
)

// Metrics holds the Prometheus counters and histograms for the fetch pipeline.
type Metrics struct {
	Searches          *prometheus.CounterVec   // labels: outcome={match,no_records,no_match,error}
	CandidatesScanned prometheus.Counter
	StationsResolved  prometheus.Counter
	FilesDownloaded   prometheus.Counter
	BytesDownloaded   prometheus.Counter
	RequestDuration   *prometheus.HistogramVec // labels: stage={search,detail,station,download}
	RequestErrors     *prometheus.CounterVec   // labels: stage

	registry *prometheus.Registry
}

// NewMetrics creates the pipeline metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Event searches by outcome.",
		}, []string{"outcome"}),
		CandidatesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_scanned_total",
			Help:      "Search result rows examined against the tolerance windows.",
		}),
		StationsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_resolved_total",
			Help:      "Station data links resolved from event detail pages.",
		}),
		FilesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_downloaded_total",
			Help:      "Station files written to the output directory.",
		}),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_downloaded_total",
			Help:      "Bytes of station data written to the output directory.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Portal request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Failed portal requests by stage.",
		}, []string{"stage"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Searches,
		m.CandidatesScanned,
		m.StationsResolved,
		m.FilesDownloaded,
		m.BytesDownloaded,
		m.RequestDuration,
		m.RequestErrors,
	)

	return m
}

// Gatherer exposes the registry for exposition.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the text format read by the node
// exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
