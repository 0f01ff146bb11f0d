// Package metrics exposes catalog run statistics as Prometheus collectors.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one catalog process. Each instance owns
// its registry so tests and repeated runs do not collide.
type Metrics struct {
	registry *prometheus.Registry

	PapersLoaded  prometheus.Counter
	PapersValid   prometheus.Gauge
	PapersInvalid prometheus.Gauge
	Violations    *prometheus.CounterVec
	Builds        *prometheus.CounterVec

	// Stage latencies: load, validate, build
	StageDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		PapersLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_papers_loaded_total",
			Help: "Paper files read from the papers directory",
		}),
		PapersValid: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_papers_valid",
			Help: "Papers that passed validation in the last run",
		}),
		PapersInvalid: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_papers_invalid",
			Help: "Papers that failed validation in the last run",
		}),
		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_violations_total",
			Help: "Validation violations by rule",
		}, []string{"rule"}),
		Builds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_builds_total",
			Help: "Build outputs written by format",
		}, []string{"format"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_stage_duration_seconds",
			Help:    "Duration of catalog pipeline stages",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddLoaded counts n loaded paper files.
func (m *Metrics) AddLoaded(n int) {
	if m != nil {
		m.PapersLoaded.Add(float64(n))
	}
}

// SetOutcome records the valid and invalid totals of a validation run.
func (m *Metrics) SetOutcome(valid, invalid int) {
	if m != nil {
		m.PapersValid.Set(float64(valid))
		m.PapersInvalid.Set(float64(invalid))
	}
}

// IncViolation counts one violation of rule.
func (m *Metrics) IncViolation(rule string) {
	if m != nil {
		m.Violations.WithLabelValues(rule).Inc()
	}
}

// IncBuild counts one written build output.
func (m *Metrics) IncBuild(format string) {
	if m != nil {
		m.Builds.WithLabelValues(format).Inc()
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry to path for the node_exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
