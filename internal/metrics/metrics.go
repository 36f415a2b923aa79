package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	DocumentsCreated    prometheus.Counter
	FormsCreated        *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	RecordsDeleted      *prometheus.CounterVec
	PhotoCleanupFailure prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with reg. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "immigration_documents_created_total",
			Help: "Total number of travel documents created",
		}),
		FormsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immigration_forms_created_total",
			Help: "Total number of sponsorship forms created",
		}, []string{"kind"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immigration_document_transitions_total",
			Help: "Travel document status transitions",
		}, []string{"from", "to"}),
		RecordsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immigration_records_deleted_total",
			Help: "Deleted records by entity",
		}, []string{"entity"}),
		PhotoCleanupFailure: f.NewCounter(prometheus.CounterOpts{
			Name: "immigration_photo_cleanup_failures_total",
			Help: "Photo files that could not be removed after their record was deleted",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immigration_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "immigration_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method"}),
		gatherer: reg,
	}
}

func (m *Metrics) IncDocumentCreated() {
	if m == nil {
		return
	}
	m.DocumentsCreated.Inc()
}

func (m *Metrics) IncFormCreated(kind string) {
	if m == nil {
		return
	}
	m.FormsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncDeleted(entity string) {
	if m == nil {
		return
	}
	m.RecordsDeleted.WithLabelValues(entity).Inc()
}

func (m *Metrics) IncPhotoCleanupFailure() {
	if m == nil {
		return
	}
	m.PhotoCleanupFailure.Inc()
}

// ObserveHTTP records one served request. Call with time.Now() taken at the start.
func (m *Metrics) ObserveHTTP(method string, code int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// Handler exposes the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
