// Package metrics defines the Prometheus metrics recorded by pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer directions for BytesTotal.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// PipelineMetrics holds Prometheus metrics for pipeline runs.
type PipelineMetrics struct {
	// StageDurationSeconds tracks how long each stage took.
	StageDurationSeconds *prometheus.HistogramVec
	// RunsTotal counts finished runs by status.
	RunsTotal *prometheus.CounterVec
	// QueriesTotal counts report queries executed.
	QueriesTotal prometheus.Counter
	// BytesTotal counts payload bytes moved to and from the object store.
	BytesTotal *prometheus.CounterVec
	// LastRunTimestamp records when the last run finished.
	LastRunTimestamp prometheus.Gauge
}

// NewPipelineMetrics creates and registers the metrics on the default registerer.
func NewPipelineMetrics() *PipelineMetrics {
	return newPipelineMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewPipelineMetricsWithRegistry creates the metrics on a custom registry.
// Use it when an isolated registry is needed (tests, one-shot binaries).
func NewPipelineMetricsWithRegistry(reg *prometheus.Registry) *PipelineMetrics {
	return newPipelineMetrics(promauto.With(reg))
}

func newPipelineMetrics(f promauto.Factory) *PipelineMetrics {
	return &PipelineMetrics{
		StageDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lake_pipeline_stage_duration_seconds",
			Help:    "Duration of a pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
		}, []string{"stage"}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lake_pipeline_runs_total",
			Help: "Total number of pipeline runs by final status",
		}, []string{"status"}),
		QueriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "lake_pipeline_queries_total",
			Help: "Total number of report queries executed",
		}),
		BytesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lake_pipeline_bytes_total",
			Help: "Total payload bytes transferred to and from the object store",
		}, []string{"direction"}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "lake_pipeline_last_run_timestamp",
			Help: "Unix timestamp of the last finished pipeline run",
		}),
	}
}

// RecordStage observes the duration of a stage.
func (m *PipelineMetrics) RecordStage(stage string, d time.Duration) {
	m.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished run and stamps the last run time.
func (m *PipelineMetrics) RecordRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.LastRunTimestamp.SetToCurrentTime()
}

// RecordQuery increments the executed queries counter.
func (m *PipelineMetrics) RecordQuery() {
	m.QueriesTotal.Inc()
}

// RecordBytes adds n transferred bytes in the given direction.
func (m *PipelineMetrics) RecordBytes(direction string, n int) {
	m.BytesTotal.WithLabelValues(direction).Add(float64(n))
}
