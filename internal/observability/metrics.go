package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// observation-sequence ETL pipeline.
type Metrics struct {
	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter

	RecordsDecoded   prometheus.Counter
	RecordsPublished prometheus.Counter
	QCFailedRows     prometheus.Counter

	CompositeRows       prometheus.Counter
	UnmatchedComponents prometheus.Counter

	ParseDuration   prometheus.Histogram
	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obsseq_etl",
			Name:      "files_processed_total",
			Help:      "Observation-sequence files fully parsed and published.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obsseq_etl",
			Name:      "files_failed_total",
			Help:      "Files abandoned because of a parse, merge, or publish failure.",
		}),
		RecordsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obsseq_etl",
			Name:      "records_decoded_total",
			Help:      "Observation records decoded from input files.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obsseq_etl",
			Name:      "records_published_total",
			Help:      "Observation records written to the sink topic.",
		}),
		QCFailedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obsseq_etl",
			Name:      "qc_failed_rows_total",
			Help:      "Decoded records whose quality-control flag is greater than zero.",
		}),
		CompositeRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obsseq_etl",
			Name:      "composite_rows_total",
			Help:      "Synthesized composite observation rows.",
		}),
		UnmatchedComponents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obsseq_etl",
			Name:      "unmatched_components_total",
			Help:      "Component rows dropped because no partner matched on location and time.",
		}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "obsseq_etl",
			Name:      "parse_duration_seconds",
			Help:      "Duration of a complete parse-derive-publish cycle for one file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "obsseq_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
	}

	prometheus.MustRegister(
		m.FilesProcessed,
		m.FilesFailed,
		m.RecordsDecoded,
		m.RecordsPublished,
		m.QCFailedRows,
		m.CompositeRows,
		m.UnmatchedComponents,
		m.ParseDuration,
		m.PipelineRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesProcessed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obsseq_etl", Name: "files_processed_total"}),
		FilesFailed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obsseq_etl", Name: "files_failed_total"}),
		RecordsDecoded:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obsseq_etl", Name: "records_decoded_total"}),
		RecordsPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obsseq_etl", Name: "records_published_total"}),
		QCFailedRows:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obsseq_etl", Name: "qc_failed_rows_total"}),
		CompositeRows:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obsseq_etl", Name: "composite_rows_total"}),
		UnmatchedComponents: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obsseq_etl", Name: "unmatched_components_total"}),
		ParseDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "obsseq_etl", Name: "parse_duration_seconds"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "obsseq_etl", Name: "pipeline_running"}),
	}
}
