// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, validation, and the request middleware shared by the API server.
//
// # Handlers
//
// HandlerFunc lets handlers return errors instead of writing them. An *HTTPError
// picks the status; anything else is a 500:
//
//	httputil.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
//		id, err := httputil.ParsePathInt64(r, "course_id")
//		if err != nil {
//			return err // 400
//		}
//		if course == nil {
//			return httputil.NotFound("Course not found")
//		}
//		return httputil.WriteSuccess(w, course)
//	})
//
// Every error body is {"error": "<message>"}.
//
// # Validation
//
//	err := httputil.ValidateAll(
//		httputil.RequireNonEmpty("name", req.Name),
//		httputil.RequireEmail("email", req.Email),
//	)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/observability: request-scoped logging
//   - pkg/api: route handlers built on these helpers
package httputil
