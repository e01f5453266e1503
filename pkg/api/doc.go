// Package api provides the HTTP REST API server for LearnTracker.
//
// # Overview
//
// The server exposes courses, lessons, students, enrollments, lesson completions,
// submissions and analytics over JSON, plus the operational endpoints /health,
// /health/live and /metrics and the documentation pages.
//
// # Architecture
//
// The API is built on gorilla/mux. Each API handler returns an error and is
// wrapped as a named operation:
//
//	api.Handle("/courses", s.instrumented("get_courses", s.getCourses)).Methods("GET")
//
// instrumented records learntracker_db_queries_total and
// learntracker_db_query_duration_seconds for the operation. A handler that
// returns an error (a 404 as much as a store fault) is counted as
// "<operation>_error".
//
// The router is wrapped, outermost first, by request metrics, OpenTelemetry
// tracing, CORS, request ids, panic recovery and a body size limit. Request
// metrics use the matched route template as the endpoint label, or "unmatched".
//
// # Errors
//
//	400  invalid body, duplicate email, already enrolled, already completed
//	404  unknown course, lesson or student
//	500  data-access failures, with the failure detail
//
// Error bodies are {"error": "<message>"}.
//
// # Usage
//
//	server := api.NewServer(store, engine, metrics, logger,
//		api.WithCORSOrigins(cfg.Server.CORSOrigins),
//		api.WithRefresher(refresher),
//	)
//	http.ListenAndServe(":8000", server)
//
// # Related Packages
//
//   - pkg/analytics: course analytics and student progress
//   - pkg/observability: metrics, health and logging
//   - pkg/storage: Store interface and backends
//   - pkg/swagger: documentation pages
package api
