package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	workspaceOpTotal    *prometheus.CounterVec
	workspaceOpDuration *prometheus.HistogramVec
	workspaceOpErrors   *prometheus.CounterVec
	workspaceNoteFiles  *prometheus.GaugeVec

	readSourceTotal     *prometheus.CounterVec
	statusFallbackTotal prometheus.Counter
	catalogAcquireTotal *prometheus.CounterVec

	watchEventsTotal *prometheus.CounterVec

	gatewayClients         prometheus.Gauge
	gatewayRequestTotal    *prometheus.CounterVec
	gatewayRequestDuration *prometheus.HistogramVec

	journalSweepTotal    *prometheus.CounterVec
	journalSweepDuration prometheus.Histogram
	journalArchivedTotal prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			workspaceOpTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workspace_op_total",
					Help: "Total workspace operations by operation and status.",
				},
				[]string{"operation", "status"},
			),
			workspaceOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "workspace_op_duration_seconds",
					Help:    "Workspace operation duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			workspaceOpErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workspace_op_errors_total",
					Help: "Total workspace operation errors by operation.",
				},
				[]string{"operation"},
			),
			workspaceNoteFiles: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "workspace_note_files",
					Help: "Markdown note files visible in the workspace by agent.",
				},
				[]string{"agent"},
			),
			readSourceTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_read_source_total",
					Help: "Total file reads by serving source (index or workspace).",
				},
				[]string{"source"},
			),
			statusFallbackTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "index_status_fallback_total",
					Help: "Total status requests answered without an index manager.",
				},
			),
			catalogAcquireTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "index_catalog_acquire_total",
					Help: "Total index catalog acquisitions by outcome.",
				},
				[]string{"outcome"},
			),
			watchEventsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "workspace_watch_events_total",
					Help: "Total workspace file watch events by kind.",
				},
				[]string{"kind"},
			),
			gatewayClients: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "gateway_connected_clients",
					Help: "Current connected gateway clients.",
				},
			),
			gatewayRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "gateway_request_total",
					Help: "Total gateway requests by method and status.",
				},
				[]string{"method", "status"},
			),
			gatewayRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "gateway_request_duration_seconds",
					Help:    "Gateway request duration in seconds by method.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method"},
			),
			journalSweepTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "journal_sweep_total",
					Help: "Total journal housekeeping sweeps by status.",
				},
				[]string{"status"},
			),
			journalSweepDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "journal_sweep_duration_seconds",
					Help:    "Journal housekeeping sweep duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			journalArchivedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "journal_notes_archived_total",
					Help: "Total daily notes moved to the archive.",
				},
			),
		}

		prometheus.MustRegister(
			m.workspaceOpTotal,
			m.workspaceOpDuration,
			m.workspaceOpErrors,
			m.workspaceNoteFiles,
			m.readSourceTotal,
			m.statusFallbackTotal,
			m.catalogAcquireTotal,
			m.watchEventsTotal,
			m.gatewayClients,
			m.gatewayRequestTotal,
			m.gatewayRequestDuration,
			m.journalSweepTotal,
			m.journalSweepDuration,
			m.journalArchivedTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordWorkspaceOp(operation string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.workspaceOpTotal.WithLabelValues(operation, status).Inc()
	m.workspaceOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if !success {
		m.workspaceOpErrors.WithLabelValues(operation).Inc()
	}
}

func SetWorkspaceNotes(agent string, count int) {
	m := getMetrics()
	m.workspaceNoteFiles.WithLabelValues(agent).Set(float64(count))
}

func RecordReadSource(source string) {
	m := getMetrics()
	m.readSourceTotal.WithLabelValues(source).Inc()
}

func RecordStatusFallback() {
	m := getMetrics()
	m.statusFallbackTotal.Inc()
}

func RecordCatalogAcquire(present bool) {
	m := getMetrics()
	outcome := "absent"
	if present {
		outcome = "present"
	}
	m.catalogAcquireTotal.WithLabelValues(outcome).Inc()
}

func RecordWatchEvent(kind string) {
	m := getMetrics()
	m.watchEventsTotal.WithLabelValues(kind).Inc()
}

func SetGatewayClients(count int) {
	m := getMetrics()
	m.gatewayClients.Set(float64(count))
}

func RecordGatewayRequest(method string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.gatewayRequestTotal.WithLabelValues(method, status).Inc()
	m.gatewayRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func RecordJournalSweep(duration time.Duration, success bool, archived int) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.journalSweepTotal.WithLabelValues(status).Inc()
	m.journalSweepDuration.Observe(duration.Seconds())
	if archived > 0 {
		m.journalArchivedTotal.Add(float64(archived))
	}
}
