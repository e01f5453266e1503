package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/learntracker/learntracker/pkg/storage"
)

// Analytics reads run against a replica when one is configured

func (s *PostgresStorage) count(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := s.conn.Replica().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}

// CountEnrollmentsByCourse counts distinct students enrolled in the course
func (s *PostgresStorage) CountEnrollmentsByCourse(ctx context.Context, courseID int64) (int64, error) {
	return s.count(ctx, "count enrollments by course",
		`SELECT COUNT(DISTINCT student_id) FROM enrollments WHERE course_id = $1`, courseID)
}

func (s *PostgresStorage) CountEnrollmentsByStudent(ctx context.Context, studentID int64) (int64, error) {
	return s.count(ctx, "count enrollments by student",
		`SELECT COUNT(*) FROM enrollments WHERE student_id = $1`, studentID)
}

// CountCompletionsByCourse counts completions across every lesson of the course
func (s *PostgresStorage) CountCompletionsByCourse(ctx context.Context, courseID int64) (int64, error) {
	return s.count(ctx, "count completions by course", `
		SELECT COUNT(lc.id)
		FROM lesson_completions lc
		JOIN lessons l ON l.id = lc.lesson_id
		WHERE l.course_id = $1
	`, courseID)
}

// CountCompletionsByStudent counts distinct lessons the student completed
func (s *PostgresStorage) CountCompletionsByStudent(ctx context.Context, studentID int64) (int64, error) {
	return s.count(ctx, "count completions by student",
		`SELECT COUNT(DISTINCT lesson_id) FROM lesson_completions WHERE student_id = $1`, studentID)
}

func (s *PostgresStorage) CountLessonsAcrossEnrollments(ctx context.Context, studentID int64) (int64, error) {
	return s.count(ctx, "count lessons across enrollments", `
		SELECT COUNT(l.id)
		FROM enrollments e
		JOIN lessons l ON l.course_id = e.course_id
		WHERE e.student_id = $1
	`, studentID)
}

func (s *PostgresStorage) AverageCompletionTime(ctx context.Context, courseID int64) (*float64, error) {
	query := `
		SELECT AVG(lc.time_spent)::float8
		FROM lesson_completions lc
		JOIN lessons l ON l.id = lc.lesson_id
		WHERE l.course_id = $1 AND lc.time_spent IS NOT NULL
	`
	var avg sql.NullFloat64
	if err := s.conn.Replica().QueryRowContext(ctx, query, courseID).Scan(&avg); err != nil {
		return nil, classify("average completion time", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (s *PostgresStorage) ListAllCourses(ctx context.Context) ([]storage.Course, error) {
	return s.queryCourses(ctx, s.conn.Replica(), "list all courses",
		`SELECT id, title, description, created_at FROM courses ORDER BY id`)
}

// CountAll counts every row of the table backing kind
func (s *PostgresStorage) CountAll(ctx context.Context, kind storage.EntityKind) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown entity kind %q", kind)
	}
	return s.count(ctx, "count "+string(kind),
		"SELECT COUNT(*) FROM "+pq.QuoteIdentifier(string(kind)))
}
