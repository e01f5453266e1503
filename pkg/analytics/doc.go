// Package analytics computes LearnTracker's derived, never-cached aggregates.
//
// # Overview
//
// Engine folds the counts exposed by storage.AnalyticsReader into two reports:
//
//   - CourseAnalytics: per course, distinct enrolled students, completions across the
//     course's lessons, and the mean time spent over timed completions (nil if none)
//   - StudentProgress: enrollments, distinct completed lessons, lessons available
//     across enrolled courses, and the completion percentage
//
// Every course appears in CourseAnalytics, including those with no enrollments or
// lessons. Store failures are returned unchanged.
//
// # Usage Example
//
//	engine := analytics.NewEngine(store,
//		analytics.WithSimulatedLatency(100*time.Millisecond, 50*time.Millisecond))
//
//	report, err := engine.CourseAnalytics(ctx)
//	progress, err := engine.StudentProgress(ctx, studentID)
//	fmt.Printf("%s: %.2f%%\n", progress.StudentName, progress.CompletionPercentage)
//
// # Simulated latency
//
// Both computations are the service's deliberate slow path for load-testing demos.
// WithSimulatedLatency adds a fixed delay ahead of the reads.
//
// # Related Packages
//
//   - pkg/storage: AnalyticsReader contract
//   - pkg/api: /api/v1/analytics/courses and /api/v1/students/{id}/progress
package analytics
