// Package metrics owns the Prometheus collectors for HTTP traffic, invoice
// creation and stock levels.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry
	service  string

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	invoicesCreated *prometheus.CounterVec
	invoiceFailures *prometheus.CounterVec
	numberRetries   prometheus.Counter
	lowStockItems   prometheus.Gauge
}

// New creates and registers all collectors for service.
func New(service string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		service:  service,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path", "status"},
		),
		invoicesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoices_created_total",
				Help: "Invoices committed",
			},
			[]string{"service"},
		),
		invoiceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_failures_total",
				Help: "Invoice creations rolled back, by error code",
			},
			[]string{"code"},
		),
		numberRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoice_number_retries_total",
			Help: "Invoice number collisions that triggered a counter resync",
		}),
		lowStockItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_low_stock_items",
			Help: "Inventory items at or below the low-stock threshold at the last check",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.invoicesCreated,
		m.invoiceFailures,
		m.numberRetries,
		m.lowStockItems,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := strconv.Itoa(rec.status)
		m.requests.WithLabelValues(m.service, r.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// InvoiceCreated counts a committed invoice.
func (m *Metrics) InvoiceCreated() {
	m.invoicesCreated.WithLabelValues(m.service).Inc()
}

// InvoiceFailed counts a rolled-back invoice creation.
func (m *Metrics) InvoiceFailed(code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	m.invoiceFailures.WithLabelValues(code).Inc()
}

// InvoiceNumberRetried counts a number collision retry.
func (m *Metrics) InvoiceNumberRetried() {
	m.numberRetries.Inc()
}

// SetLowStockItems records the size of the latest low-stock report.
func (m *Metrics) SetLowStockItems(n int) {
	m.lowStockItems.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers such as promhttp flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
