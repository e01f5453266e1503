package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every LearnTracker metric name
const Namespace = "learntracker"

// DurationBuckets are the latency histogram boundaries in seconds (+Inf is implicit)
var DurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

// Metrics holds all Prometheus instruments. It is created once at startup and
// passed by handle to every component that records or exports metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBQueriesTotal       *prometheus.CounterVec
	DBQueryDuration      *prometheus.HistogramVec
	DBConnectionsActive  prometheus.Gauge
	DBConnectionsIdle    prometheus.Gauge
	MetricsRefreshErrors prometheus.Counter

	// Business metrics
	CoursesTotal           prometheus.Gauge
	StudentsTotal          prometheus.Gauge
	LessonCompletionsTotal prometheus.Counter
	SubmissionsTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers all instruments on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   DurationBuckets,
			},
			[]string{"method", "endpoint"},
		),

		DBQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "db_queries_total",
				Help:      "Total database queries",
			},
			[]string{"operation"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Duration of instrumented operations in seconds",
				Buckets:   DurationBuckets,
			},
			[]string{"operation"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "db_connections_active",
				Help:      "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "db_connections_idle",
				Help:      "Idle database connections",
			},
		),
		MetricsRefreshErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "metrics_refresh_errors_total",
				Help:      "Total failed business metrics refreshes",
			},
		),

		CoursesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "courses_total",
				Help:      "Total number of courses",
			},
		),
		StudentsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "students_total",
				Help:      "Total number of students",
			},
		),
		LessonCompletionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "lesson_completions_total",
				Help:      "Total number of completed lessons",
			},
		),
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "submissions_total",
				Help:      "Total number of submissions",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.MetricsRefreshErrors,
		m.CoursesTotal,
		m.StudentsTotal,
		m.LessonCompletionsTotal,
		m.SubmissionsTotal,
	)

	return m
}

// Registry returns the registry the instruments are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncLessonCompletion records one successful lesson completion
func (m *Metrics) IncLessonCompletion() {
	if m == nil {
		return
	}
	m.LessonCompletionsTotal.Inc()
}

// IncSubmission records one created submission with the given status
func (m *Metrics) IncSubmission(status string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(status).Inc()
}

// StatusClass collapses an HTTP status code into its class ("2xx", "4xx", ...)
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// MethodLabel bounds the method label to the standard HTTP methods
func MethodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	}
	return "OTHER"
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	return rw.ResponseWriter.Write(b)
}

// EndpointResolver maps a request onto a bounded endpoint label (a route template)
type EndpointResolver func(r *http.Request) string

// HTTPMetricsMiddleware records request count and latency for every request.
// The endpoint label comes from resolve so that raw user paths never become labels.
func HTTPMetricsMiddleware(metrics *Metrics, resolve EndpointResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				p := recover()
				status := rw.statusCode
				if p != nil {
					status = http.StatusInternalServerError
				}

				method := MethodLabel(r.Method)
				endpoint := resolve(r)
				metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, StatusClass(status)).Inc()
				metrics.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
