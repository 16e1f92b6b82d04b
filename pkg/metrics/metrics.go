// Package metrics exposes Prometheus instrumentation for pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metrics for the transformation pipeline.
type Registry struct {
	registry *prometheus.Registry

	StagesTotal       *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	ComponentsTotal   *prometheus.GaugeVec
	SnapshotsTotal    prometheus.Gauge
	ResampleFactor    prometheus.Gauge
	InvariantWarnings prometheus.Counter
	PipelineRunsTotal *prometheus.CounterVec
}

// NewRegistry creates a registry with all pipeline metrics registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.StagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridprep_pipeline_stages_total",
			Help: "Total number of pipeline stage executions",
		},
		[]string{"stage", "status"},
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridprep_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"stage"},
	)

	r.ComponentsTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridprep_network_components_total",
			Help: "Number of components in the network after the last completed stage",
		},
		[]string{"collection"},
	)

	r.SnapshotsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridprep_network_snapshots_total",
			Help: "Number of snapshots in the network",
		},
	)

	r.ResampleFactor = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridprep_resample_factor",
			Help: "Temporal aggregation factor of the last resample",
		},
	)

	r.InvariantWarnings = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridprep_physical_invariant_warnings_total",
			Help: "Total number of non-fatal physical invariant warnings",
		},
	)

	r.PipelineRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridprep_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	return r
}

// Gatherer returns the underlying prometheus gatherer for exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordStage records a completed stage execution with its duration.
func (r *Registry) RecordStage(stage, status string, duration time.Duration) {
	r.StagesTotal.WithLabelValues(stage, status).Inc()
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRun records a completed pipeline run.
func (r *Registry) RecordRun(status string) {
	r.PipelineRunsTotal.WithLabelValues(status).Inc()
}
