package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL
// pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	RunsTotal       *prometheus.CounterVec // labels: outcome={completed,failed}

	// Per-stage metrics.
	StageDuration *prometheus.HistogramVec // labels: stage
	StageErrors   *prometheus.CounterVec   // labels: stage, kind={connectivity,data,partial}
	RowsIn        *prometheus.CounterVec   // labels: stage
	RowsOut       *prometheus.CounterVec   // labels: stage
	RowsDropped   *prometheus.CounterVec   // labels: stage

	// Object store metrics.
	ObjectsWritten  *prometheus.CounterVec // labels: bucket
	NotifierEnabled prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.RunsTotal,
		m.StageDuration,
		m.StageErrors,
		m.RowsIn,
		m.RowsOut,
		m.RowsDropped,
		m.ObjectsWritten,
		m.NotifierEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traffic_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_etl",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "traffic_etl",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_etl",
			Name:      "stage_errors_total",
			Help:      "Stage failures by error kind.",
		}, []string{"stage", "kind"}),
		RowsIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_etl",
			Name:      "rows_in_total",
			Help:      "Rows read by each stage.",
		}, []string{"stage"}),
		RowsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_etl",
			Name:      "rows_out_total",
			Help:      "Rows written by each stage.",
		}, []string{"stage"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows removed by cleaning (duplicates, bad timestamps, corrupt rows).",
		}, []string{"stage"}),
		ObjectsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_etl",
			Name:      "objects_written_total",
			Help:      "Objects written to the store by bucket.",
		}, []string{"bucket"}),
		NotifierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traffic_etl",
			Name:      "notifier_enabled",
			Help:      "1 when stage-event publication is enabled, 0 otherwise.",
		}),
	}
}
