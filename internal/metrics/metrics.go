package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a harvest process.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PagesFetched      prometheus.Counter
	RecordsFetched    prometheus.Counter
	RowsExtracted     prometheus.Counter
	ParseFailures     prometheus.Counter
	InvalidGeometries *prometheus.CounterVec
	RowsWritten       *prometheus.CounterVec
	LookupResults     *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	LastRunTimestamp  prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "geoharvest_sru_pages_fetched_total",
			Help: "Total number of SRU result pages fetched",
		}),
		RecordsFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "geoharvest_sru_records_fetched_total",
			Help: "Total number of SRU records received",
		}),
		RowsExtracted: f.NewCounter(prometheus.CounterOpts{
			Name: "geoharvest_rows_extracted_total",
			Help: "Total number of geometry rows flattened from area markings",
		}),
		ParseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "geoharvest_geometry_parse_failures_total",
			Help: "Total number of geometries whose WKT could not be parsed",
		}),
		InvalidGeometries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoharvest_invalid_geometries_total",
			Help: "Geometries dropped as structurally invalid, by layer kind",
		}, []string{"kind"}),
		RowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoharvest_rows_written_total",
			Help: "Rows written to the spatial store, by layer",
		}, []string{"layer"}),
		LookupResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoharvest_reference_lookups_total",
			Help: "Reference lookups by outcome (resolved, not_found, failed)",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoharvest_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "geoharvest_last_run_timestamp_seconds",
			Help: "Unix time at which the last harvest run finished",
		}),
	}
}

func (m *Metrics) IncPages() {
	if m != nil {
		m.PagesFetched.Inc()
	}
}

func (m *Metrics) AddRecords(n int) {
	if m != nil {
		m.RecordsFetched.Add(float64(n))
	}
}

func (m *Metrics) AddRows(n int) {
	if m != nil {
		m.RowsExtracted.Add(float64(n))
	}
}

func (m *Metrics) IncParseFailures() {
	if m != nil {
		m.ParseFailures.Inc()
	}
}

func (m *Metrics) AddInvalid(kind string, n int) {
	if m != nil {
		m.InvalidGeometries.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *Metrics) AddWritten(layer string, n int) {
	if m != nil {
		m.RowsWritten.WithLabelValues(layer).Add(float64(n))
	}
}

func (m *Metrics) IncLookup(outcome string) {
	if m != nil {
		m.LookupResults.WithLabelValues(outcome).Inc()
	}
}

// ObserveStage records the duration of a named pipeline stage. Its signature
// matches logging.Observer.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (m *Metrics) MarkRunFinished(t time.Time) {
	if m != nil {
		m.LastRunTimestamp.Set(float64(t.Unix()))
	}
}
