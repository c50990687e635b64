package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics backs the API's /metrics endpoint. Its registry is
// shared with the pipeline collectors of the same process.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadFiles *prometheus.HistogramVec
	uploadBytes *prometheus.HistogramVec

	kbQueriesTotal   *prometheus.CounterVec
	kbNoContextTotal *prometheus.CounterVec
	kbCitations      *prometheus.HistogramVec
	kbDuration       *prometheus.HistogramVec
}

var knownPaths = map[string]struct{}{
	"/healthz":        {},
	"/metrics":        {},
	"/v1/documents":   {},
	"/v1/tables":      {},
	"/v1/export.xlsx": {},
	"/v1/kb/query":    {},
	"/v1/kb/sync":     {},
}

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intake", Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intake", Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),

		requestTotal: counter("http", "requests_total", "Total HTTP requests processed.",
			"service", "method", "path", "status"),
		requestDuration: histogram("http", "request_duration_seconds", "HTTP request duration in seconds.",
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300}, "service", "method", "path"),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "intake",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		}),

		uploadFiles: histogram("http", "upload_files", "Files per document upload request.",
			[]float64{1, 2, 5, 10, 20, 50}, "service"),
		uploadBytes: histogram("http", "upload_bytes", "Total bytes per document upload request.",
			prometheus.ExponentialBuckets(16<<10, 4, 7), "service"),

		kbQueriesTotal: counter("kb", "queries_total", "Total successful knowledge base queries.", "service"),
		kbNoContextTotal: counter("kb", "no_context_total",
			"Total knowledge base queries answered without citations.", "service"),
		kbCitations: histogram("kb", "citations", "Distribution of citations per knowledge base answer.",
			[]float64{0, 1, 2, 3, 5, 8, 13, 21}, "service"),
		kbDuration: histogram("kb", "query_duration_seconds", "Knowledge base query duration in seconds.",
			prometheus.DefBuckets, "service"),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.uploadFiles,
		m.uploadBytes,
		m.kbQueriesTotal,
		m.kbNoContextTotal,
		m.kbCitations,
		m.kbDuration,
	)
	return m
}

// Registry lets other collectors share the /metrics endpoint.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()
		next.ServeHTTP(rec, r)

		path := normalizePath(r.URL.Path)
		m.requestTotal.WithLabelValues(service, r.Method, path, strconv.Itoa(rec.statusCode)).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath bounds label cardinality: table names collapse into a
// placeholder and unknown paths into "other".
func normalizePath(path string) string {
	if _, ok := knownPaths[path]; ok {
		return path
	}
	if strings.HasPrefix(path, "/v1/tables/") && strings.HasSuffix(path, "/records") {
		return "/v1/tables/{table}/records"
	}
	return "other"
}

func (m *HTTPServerMetrics) RecordUpload(service string, files int, bytes int64) {
	m.uploadFiles.WithLabelValues(service).Observe(float64(files))
	m.uploadBytes.WithLabelValues(service).Observe(float64(bytes))
}

func (m *HTTPServerMetrics) RecordKBQuery(service string, citations int, duration time.Duration) {
	m.kbQueriesTotal.WithLabelValues(service).Inc()
	m.kbCitations.WithLabelValues(service).Observe(float64(citations))
	m.kbDuration.WithLabelValues(service).Observe(duration.Seconds())
	if citations == 0 {
		m.kbNoContextTotal.WithLabelValues(service).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
