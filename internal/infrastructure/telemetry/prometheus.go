package telemetry

import (
	"database/sql"
	"net/http"

	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder counts fiscal operations for the metrics endpoint
type PrometheusRecorder struct {
	syncs        *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec
	withholdings *prometheus.CounterVec
	exports      *prometheus.CounterVec
	exportRows   *prometheus.CounterVec
}

// NewPrometheusRecorder registers the fiscal counters on reg
func NewPrometheusRecorder(reg prometheus.Registerer, namespace string) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_book_syncs_total",
			Help:      "Billing documents reconciled into the sales book, by outcome.",
		}, []string{"outcome"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_diagnostics_total",
			Help:      "Corrections applied to inconsistent billing data, by code.",
		}, []string{"code"}),
		withholdings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withholdings_posted_total",
			Help:      "Withholding vouchers posted to the journal, by tax.",
		}, []string{"tax"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_generated_total",
			Help:      "SENIAT files generated, by kind.",
		}, []string{"kind"}),
		exportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_records_total",
			Help:      "Records written to SENIAT files, by kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{r.syncs, r.diagnostics, r.withholdings, r.exports, r.exportRows} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) SyncCompleted(outcome string) {
	r.syncs.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRecorder) DiagnosticRaised(code string) {
	r.diagnostics.WithLabelValues(code).Inc()
}

func (r *PrometheusRecorder) WithholdingPosted(tax string) {
	r.withholdings.WithLabelValues(tax).Inc()
}

func (r *PrometheusRecorder) ExportGenerated(kind string, records int) {
	r.exports.WithLabelValues(kind).Inc()
	r.exportRows.WithLabelValues(kind).Add(float64(records))
}

var _ appfiscal.Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRegistry creates a registry with runtime, process and, when
// db is set, connection pool collectors.
func NewPrometheusRegistry(db *sql.DB, dbName string) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db, dbName))
	}
	return reg
}

// PrometheusHandler serves the registry in the exposition format
func PrometheusHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
