// Package metrics is the Prometheus sink for the refresh pipeline: fetch
// outcomes by reason, source error codes, and notification delivery results.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the pipeline counters. Construct one per process with New
// and share it between the client, the orchestrator, and the dispatchers.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal         *prometheus.CounterVec
	sourceErrorsTotal  *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	refreshBatches     prometheus.Counter
	refreshItems       prometheus.Counter
}

// New registers the pipeline metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_fetch_total",
				Help: "Price fetch attempts by status and failure reason",
			},
			[]string{"status", "reason"},
		),
		sourceErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_source_errors_total",
				Help: "Classified price source errors keyed by wire error code",
			},
			[]string{"code"},
		),
		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification dispatch results by status and reason",
			},
			[]string{"status", "reason"},
		),
		refreshBatches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "refresh_batches_total",
				Help: "Completed refresh batch runs",
			},
		),
		refreshItems: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "refresh_items_total",
				Help: "Observations attempted across all refresh runs",
			},
		),
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FetchSuccess counts one successful price fetch.
func (m *Metrics) FetchSuccess() {
	m.fetchTotal.WithLabelValues("success", "none").Inc()
}

// FetchFailure counts one failed price fetch tagged by the classified reason.
func (m *Metrics) FetchFailure(reason string) {
	m.fetchTotal.WithLabelValues("failure", reason).Inc()
}

// IncSourceError counts one classified source error by wire code.
func (m *Metrics) IncSourceError(code string) {
	m.sourceErrorsTotal.WithLabelValues(code).Inc()
}

// NotificationQueued counts an event accepted by the transport.
func (m *Metrics) NotificationQueued() {
	m.notificationsTotal.WithLabelValues("queued", "none").Inc()
}

// NotificationPublished counts an async delivery confirmation.
func (m *Metrics) NotificationPublished() {
	m.notificationsTotal.WithLabelValues("published", "none").Inc()
}

// NotificationFailed counts a failed dispatch, sync or async.
func (m *Metrics) NotificationFailed(reason string) {
	m.notificationsTotal.WithLabelValues("failure", reason).Inc()
}

// BatchCompleted records one finished refresh run and how many items it attempted.
func (m *Metrics) BatchCompleted(items int) {
	m.refreshBatches.Inc()
	m.refreshItems.Add(float64(items))
}
