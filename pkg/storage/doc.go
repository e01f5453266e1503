// Package storage defines the LearnTracker data access layer.
//
// # Overview
//
// The package owns the persisted entities (courses, lessons, students, enrollments,
// lesson completions, submissions) and the interfaces the rest of the service uses to
// reach them. Two backends implement Store:
//
//   - postgres: database/sql with lib/pq, primary plus optional read replicas
//   - memory: in-process maps, for local development and tests
//
// # Interfaces
//
// The Store interface is composed from focused capabilities:
//
//   - CourseReader / CourseWriter: courses and lessons
//   - StudentReader / StudentWriter: students
//   - ProgressWriter: enrollments, completions, submissions
//   - SubmissionReader: paginated submission listing
//   - AnalyticsReader: counts and averages consumed by pkg/analytics
//   - HealthChecker: ping and pool statistics for /health and metrics refresh
//
// # Errors
//
// Single-record lookups return (nil, nil) for missing rows. Writes that reference a
// missing row fail with ErrNotFound, uniqueness violations with ErrConflict, and anything
// that went wrong talking to the backend is a *DataAccessError:
//
//	if err := store.Enroll(ctx, e); errors.Is(err, storage.ErrConflict) {
//		// already enrolled
//	}
//
// # Related Packages
//
//   - pkg/storage/postgres: PostgreSQL backend
//   - pkg/storage/memory: in-memory backend
//   - pkg/analytics: aggregate computations on top of AnalyticsReader
package storage
