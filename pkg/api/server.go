package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/learntracker/learntracker/pkg/analytics"
	"github.com/learntracker/learntracker/pkg/httputil"
	"github.com/learntracker/learntracker/pkg/observability"
	"github.com/learntracker/learntracker/pkg/storage"
	"github.com/learntracker/learntracker/pkg/swagger"
)

// unmatchedEndpoint is the endpoint label for requests that match no route
const unmatchedEndpoint = "unmatched"

const defaultMaxBodyBytes = 1 << 20

// Server represents our API server
type Server struct {
	store     storage.Store
	engine    *analytics.Engine
	metrics   *observability.Metrics
	refresher observability.Refresher
	health    *observability.HealthChecker
	exporter  *observability.Exporter
	logger    *observability.Logger
	router    *mux.Router
	handler   http.Handler

	corsOrigins  []string
	maxBodyBytes int64
}

// Option configures a Server
type Option func(*Server)

// WithCORSOrigins sets the allowed CORS origins ("*" allows any)
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMaxBodyBytes limits request body size
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRefresher replaces the business-metrics refresher used by /metrics and /health
func WithRefresher(refresher observability.Refresher) Option {
	return func(s *Server) {
		s.refresher = refresher
	}
}

// NewServer creates a new API server
func NewServer(store storage.Store, engine *analytics.Engine, metrics *observability.Metrics, logger *observability.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	s := &Server{
		store:        store,
		engine:       engine,
		metrics:      metrics,
		logger:       logger,
		router:       mux.NewRouter(),
		corsOrigins:  []string{"*"},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.refresher == nil {
		s.refresher = observability.NewBusinessMetricsRefresher(store, metrics, logger)
	}
	s.health = observability.NewHealthChecker(store, s.refresher)
	s.exporter = observability.NewExporter(metrics.Registry())

	s.setupRoutes()
	s.handler = s.buildHandler()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(httputil.LoggingMiddleware)
	s.router.NotFoundHandler = httputil.LoggingMiddleware(http.HandlerFunc(notFound))
	s.router.MethodNotAllowedHandler = httputil.LoggingMiddleware(http.HandlerFunc(methodNotAllowed))

	// Docs, health and metrics
	swagger.NewSwaggerHandlers().RegisterRoutes(s.router)
	s.router.HandleFunc("/health", s.health.Readiness).Methods("GET")
	s.router.HandleFunc("/health/live", s.health.Liveness).Methods("GET")
	s.router.Handle("/metrics", s.exporter.Handler(s.refresher)).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Students
	api.Handle("/students", s.instrumented("create_student", s.createStudent)).Methods("POST")
	api.Handle("/students/{student_id}", s.instrumented("get_student", s.getStudent)).Methods("GET")
	api.Handle("/students/{student_id}/progress", s.instrumented("get_student_progress", s.getStudentProgress)).Methods("GET")

	// Courses and lessons
	api.Handle("/courses", s.instrumented("create_course", s.createCourse)).Methods("POST")
	api.Handle("/courses", s.instrumented("get_courses", s.getCourses)).Methods("GET")
	api.Handle("/courses/{course_id}", s.instrumented("get_course", s.getCourse)).Methods("GET")
	api.Handle("/courses/{course_id}/enroll", s.instrumented("enroll_student", s.enrollStudent)).Methods("POST")
	api.Handle("/courses/{course_id}/lessons", s.instrumented("get_course_lessons", s.getCourseLessons)).Methods("GET")
	api.Handle("/courses/{course_id}/lessons", s.instrumented("create_lesson", s.createLesson)).Methods("POST")
	api.Handle("/lessons/{lesson_id}/complete", s.instrumented("complete_lesson", s.completeLesson)).Methods("POST")

	// Submissions
	api.Handle("/submissions", s.instrumented("create_submission", s.createSubmission)).Methods("POST")
	api.Handle("/submissions", s.instrumented("get_submissions", s.getSubmissions)).Methods("GET")

	// Analytics
	api.Handle("/analytics/courses", s.instrumented("get_course_analytics", s.getCourseAnalytics)).Methods("GET")
}

// buildHandler wraps the router, outermost first: request metrics, tracing,
// CORS, request id, panic recovery, body limit
func (s *Server) buildHandler() http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", httputil.RequestIDHeader},
		ExposedHeaders: []string{httputil.RequestIDHeader},
	})

	return httputil.Chain(
		observability.HTTPMetricsMiddleware(s.metrics, s.endpointLabel),
		func(next http.Handler) http.Handler { return otelhttp.NewHandler(next, observability.ServiceName) },
		corsHandler.Handler,
		httputil.RequestIDMiddleware(s.logger),
		httputil.RecoveryMiddleware,
		httputil.MaxBytesMiddleware(s.maxBodyBytes),
	)(s.router)
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the route table
func (s *Server) Router() *mux.Router {
	return s.router
}

// endpointLabel resolves a request to its route template so that
// path parameters never become metric label values
func (s *Server) endpointLabel(r *http.Request) string {
	var match mux.RouteMatch
	if s.router.Match(r, &match) && match.Route != nil {
		if tmpl, err := match.Route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return unmatchedEndpoint
}

// instrumented runs h as the named operation: db_queries_total and
// db_query_duration_seconds are recorded around it and its error is returned unchanged
func (s *Server) instrumented(operation string, h httputil.HandlerFunc) http.Handler {
	return httputil.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return observability.Instrument(r.Context(), s.metrics, operation, func(ctx context.Context) error {
			return h(w, r.WithContext(ctx))
		})
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFoundError(w, "Not Found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
