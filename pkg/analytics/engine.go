package analytics

import (
	"context"
	"time"

	"github.com/learntracker/learntracker/pkg/storage"
)

// UnknownStudentName is reported when a progress lookup names a missing student
const UnknownStudentName = "Unknown"

// CourseAnalytics aggregates enrollment and completion activity for one course
type CourseAnalytics struct {
	CourseID          int64    `json:"course_id"`
	CourseTitle       string   `json:"course_title"`
	TotalStudents     int64    `json:"total_students"`
	CompletedLessons  int64    `json:"completed_lessons"`
	AvgCompletionTime *float64 `json:"avg_completion_time"`
}

// StudentProgress summarizes one student's progress across enrolled courses
type StudentProgress struct {
	StudentID             int64   `json:"student_id"`
	StudentName           string  `json:"student_name"`
	TotalEnrollments      int64   `json:"total_enrollments"`
	CompletedLessons      int64   `json:"completed_lessons"`
	TotalLessonsAvailable int64   `json:"total_lessons_available"`
	CompletionPercentage  float64 `json:"completion_percentage"`
}

// Engine computes derived analytics from the data access layer. Results are
// recomputed on every call.
type Engine struct {
	reader          storage.AnalyticsReader
	courseLatency   time.Duration
	progressLatency time.Duration
	sleep           func(time.Duration)
}

// Option configures an Engine
type Option func(*Engine)

// WithSimulatedLatency adds a fixed delay before each course analytics and
// student progress computation. The delay is not cut short by cancellation.
func WithSimulatedLatency(courseAnalytics, studentProgress time.Duration) Option {
	return func(e *Engine) {
		e.courseLatency = courseAnalytics
		e.progressLatency = studentProgress
	}
}

// NewEngine creates an analytics engine reading from reader
func NewEngine(reader storage.AnalyticsReader, opts ...Option) *Engine {
	e := &Engine{
		reader: reader,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) delay(d time.Duration) {
	if d > 0 {
		e.sleep(d)
	}
}

// CourseAnalytics returns one record per existing course in course id order.
// Courses without enrollments or lessons are reported with zero counts.
func (e *Engine) CourseAnalytics(ctx context.Context) ([]CourseAnalytics, error) {
	e.delay(e.courseLatency)

	courses, err := e.reader.ListAllCourses(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]CourseAnalytics, 0, len(courses))
	for _, course := range courses {
		students, err := e.reader.CountEnrollmentsByCourse(ctx, course.ID)
		if err != nil {
			return nil, err
		}
		completed, err := e.reader.CountCompletionsByCourse(ctx, course.ID)
		if err != nil {
			return nil, err
		}
		avg, err := e.reader.AverageCompletionTime(ctx, course.ID)
		if err != nil {
			return nil, err
		}

		results = append(results, CourseAnalytics{
			CourseID:          course.ID,
			CourseTitle:       course.Title,
			TotalStudents:     students,
			CompletedLessons:  completed,
			AvgCompletionTime: avg,
		})
	}

	return results, nil
}

// StudentProgress computes progress for studentID. Callers check existence first;
// an unknown id yields UnknownStudentName rather than an error.
func (e *Engine) StudentProgress(ctx context.Context, studentID int64) (*StudentProgress, error) {
	e.delay(e.progressLatency)

	enrollments, err := e.reader.CountEnrollmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	completed, err := e.reader.CountCompletionsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	available, err := e.reader.CountLessonsAcrossEnrollments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	student, err := e.reader.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	name := UnknownStudentName
	if student != nil {
		name = student.Name
	}

	return &StudentProgress{
		StudentID:             studentID,
		StudentName:           name,
		TotalEnrollments:      enrollments,
		CompletedLessons:      completed,
		TotalLessonsAvailable: available,
		CompletionPercentage:  CompletionPercentage(completed, available),
	}, nil
}

// CompletionPercentage returns completed/available*100 rounded half-up to two
// decimals, or 0 when nothing is available. The rounding is done on the exact
// quotient in integer hundredths, so 23/160 gives 14.38.
func CompletionPercentage(completed, available int64) float64 {
	if available <= 0 || completed < 0 {
		return 0
	}
	hundredths := (2*completed*10000 + available) / (2 * available)
	return float64(hundredths) / 100
}
