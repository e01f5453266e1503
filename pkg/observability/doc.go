// Package observability provides structured logging, Prometheus metrics, operation
// instrumentation, health checks and OpenTelemetry tracing for LearnTracker.
//
// # Metrics
//
// A single registry is created at startup and wrapped by Metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
// Every instrument is prefixed with "learntracker_". HTTP traffic is recorded by
// HTTPMetricsMiddleware using route templates as the endpoint label.
//
// # Instrumenting operations
//
// Observe, Instrument and Wrap time a unit of work and count it in db_queries_total
// under its operation name, or under "<operation>_error" when it fails. Results and
// errors pass through untouched:
//
//	courses, err := observability.Observe(ctx, metrics, "get_courses",
//		func(ctx context.Context) ([]storage.Course, error) {
//			return store.ListCourses(ctx, page)
//		})
//
// # Export and refresh
//
// Exporter renders the registry in the Prometheus text format. The business gauges
// (courses_total, students_total, db_connections_*) are refreshed by
// BusinessMetricsRefresher before each export, on successful health checks, and on
// a cron schedule. Refresh never fails its caller.
//
// # Logging
//
// Logger wraps logrus with JSON output:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("course_id", id).Info("Course created")
//
// Request-scoped loggers travel in the context (WithLogger / FromContext).
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/httputil: request logging and request id middleware
package observability
