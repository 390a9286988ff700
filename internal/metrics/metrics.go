// Package metrics exports engine statistics in the Prometheus text format.
package metrics

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/boxseed/internal/defaults"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts resolution outcomes. It implements defaults.Observer and is
// safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	recordsTotal       *prometheus.CounterVec
	filesResolved      *prometheus.CounterVec
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
}

var _ defaults.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder registered on a private registry.
func NewRecorder() (*Recorder, error) {
	return NewRecorderWithRegistry(prometheus.NewRegistry())
}

// NewRecorderWithRegistry creates a Recorder registered on registry.
func NewRecorderWithRegistry(registry *prometheus.Registry) (*Recorder, error) {
	m := &Recorder{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("register boxseed metrics: %w", err)
	}
	return m, nil
}

func (m *Recorder) initMetrics() {
	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxseed_records_total",
			Help: "Annotation records seen, by source format and outcome",
		},
		[]string{"format", "outcome"}, // outcome: box, negative, skipped, unmatched
	)

	m.filesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxseed_files_resolved_total",
			Help: "Candidate files that received default annotations",
		},
		[]string{"format"},
	)

	m.resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxseed_resolutions_total",
			Help: "Completed resolution calls",
		},
		[]string{"format"},
	)

	m.resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boxseed_resolution_duration_seconds",
			Help:    "Wall time of one resolution call",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"format"},
	)
}

// Describe implements prometheus.Collector.
func (m *Recorder) Describe(ch chan<- *prometheus.Desc) {
	m.recordsTotal.Describe(ch)
	m.filesResolved.Describe(ch)
	m.resolutionsTotal.Describe(ch)
	m.resolutionDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Recorder) Collect(ch chan<- prometheus.Metric) {
	m.recordsTotal.Collect(ch)
	m.filesResolved.Collect(ch)
	m.resolutionsTotal.Collect(ch)
	m.resolutionDuration.Collect(ch)
}

// ObserveRecord implements defaults.Observer.
func (m *Recorder) ObserveRecord(format defaults.Format, outcome defaults.Outcome) {
	m.recordsTotal.WithLabelValues(string(format), string(outcome)).Inc()
}

// ObserveResolution implements defaults.Observer.
func (m *Recorder) ObserveResolution(format defaults.Format, files int, elapsed time.Duration) {
	f := string(format)
	m.resolutionsTotal.WithLabelValues(f).Inc()
	m.filesResolved.WithLabelValues(f).Add(float64(files))
	m.resolutionDuration.WithLabelValues(f).Observe(elapsed.Seconds())
}

// Registry returns the registry the recorder is registered on.
func (m *Recorder) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values to path in the text exposition
// format, suitable for the node exporter's textfile collector.
func (m *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
