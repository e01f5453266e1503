package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/learntracker/learntracker/pkg/observability"
	"github.com/learntracker/learntracker/pkg/storage"
)

// PostgreSQL error codes the store maps onto storage error kinds
const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
)

// BackendName is reported by the health endpoint
const BackendName = "postgresql"

var _ storage.Store = (*PostgresStorage)(nil)

// PostgresStorage implements storage.Store on PostgreSQL. Writes and API reads go
// to the primary; analytics reads are spread across replicas.
type PostgresStorage struct {
	conn   *ConnectionManager
	logger *observability.Logger
}

// NewPostgresStorage connects using config and applies migrations when AutoMigrate is set
func NewPostgresStorage(ctx context.Context, config storage.Config, logger *observability.Logger) (*PostgresStorage, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	conn, err := NewConnectionManager(ctx, ConnectionConfig{
		PrimaryURL:  config.PostgresURL,
		ReplicaURLs: ParseReplicaURLs(config.PostgresReplicaURLs),
		MaxConns:    config.PostgresMaxConns,
		MinConns:    config.PostgresMinConns,
		Timeout:     config.PostgresTimeout,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}, logger)
	if err != nil {
		return nil, err
	}

	if config.AutoMigrate {
		if err := RunMigrations(ctx, conn.Primary(), logger); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return NewPostgresStorageWithManager(conn, logger), nil
}

// NewPostgresStorageWithManager wraps an existing connection manager
func NewPostgresStorageWithManager(conn *ConnectionManager, logger *observability.Logger) *PostgresStorage {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &PostgresStorage{conn: conn, logger: logger}
}

// Connections exposes the underlying connection manager
func (s *PostgresStorage) Connections() *ConnectionManager {
	return s.conn
}

// classify maps driver errors onto storage error kinds
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
	}
	return storage.NewDataAccessError(op, err)
}

// Courses and lessons

func (s *PostgresStorage) CreateCourse(ctx context.Context, course *storage.Course) error {
	query := `
		INSERT INTO courses (title, description)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := s.conn.Primary().QueryRowContext(ctx, query, course.Title, course.Description).
		Scan(&course.ID, &course.CreatedAt)
	return classify("create course", err)
}

func (s *PostgresStorage) GetCourse(ctx context.Context, id int64) (*storage.Course, error) {
	query := `SELECT id, title, description, created_at FROM courses WHERE id = $1`

	var c storage.Course
	err := s.conn.Primary().QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get course", err)
	}
	return &c, nil
}

func (s *PostgresStorage) ListCourses(ctx context.Context, page storage.Page) ([]storage.Course, error) {
	page = page.Normalize()
	query := `
		SELECT id, title, description, created_at
		FROM courses
		ORDER BY id
		LIMIT $1 OFFSET $2
	`
	return s.queryCourses(ctx, s.conn.Primary(), "list courses", query, page.Limit, page.Skip)
}

func (s *PostgresStorage) queryCourses(ctx context.Context, db *sql.DB, op, query string, args ...interface{}) ([]storage.Course, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	courses := make([]storage.Course, 0)
	for rows.Next() {
		var c storage.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt); err != nil {
			return nil, classify(op, err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return courses, nil
}

func (s *PostgresStorage) CreateLesson(ctx context.Context, lesson *storage.Lesson) error {
	query := `
		INSERT INTO lessons (course_id, title, content, order_num)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := s.conn.Primary().QueryRowContext(ctx, query,
		lesson.CourseID,
		lesson.Title,
		lesson.Content,
		lesson.OrderNum,
	).Scan(&lesson.ID, &lesson.CreatedAt)
	return classify("create lesson", err)
}

func (s *PostgresStorage) GetLesson(ctx context.Context, id int64) (*storage.Lesson, error) {
	query := `SELECT id, course_id, title, content, order_num, created_at FROM lessons WHERE id = $1`

	var l storage.Lesson
	err := s.conn.Primary().QueryRowContext(ctx, query, id).
		Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.OrderNum, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get lesson", err)
	}
	return &l, nil
}

func (s *PostgresStorage) ListLessons(ctx context.Context, courseID int64) ([]storage.Lesson, error) {
	query := `
		SELECT id, course_id, title, content, order_num, created_at
		FROM lessons
		WHERE course_id = $1
		ORDER BY order_num, id
	`
	rows, err := s.conn.Primary().QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, classify("list lessons", err)
	}
	defer rows.Close()

	lessons := make([]storage.Lesson, 0)
	for rows.Next() {
		var l storage.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.OrderNum, &l.CreatedAt); err != nil {
			return nil, classify("list lessons", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list lessons", err)
	}
	return lessons, nil
}

// Students

func (s *PostgresStorage) CreateStudent(ctx context.Context, student *storage.Student) error {
	query := `
		INSERT INTO students (name, email)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := s.conn.Primary().QueryRowContext(ctx, query, student.Name, student.Email).
		Scan(&student.ID, &student.CreatedAt)
	return classify("create student", err)
}

func (s *PostgresStorage) GetStudent(ctx context.Context, id int64) (*storage.Student, error) {
	return s.getStudent(ctx, "get student", `SELECT id, name, email, created_at FROM students WHERE id = $1`, id)
}

func (s *PostgresStorage) GetStudentByEmail(ctx context.Context, email string) (*storage.Student, error) {
	return s.getStudent(ctx, "get student by email", `SELECT id, name, email, created_at FROM students WHERE email = $1`, email)
}

func (s *PostgresStorage) getStudent(ctx context.Context, op, query string, arg interface{}) (*storage.Student, error) {
	var st storage.Student
	err := s.conn.Primary().QueryRowContext(ctx, query, arg).
		Scan(&st.ID, &st.Name, &st.Email, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return &st, nil
}

// Progress

func (s *PostgresStorage) Enroll(ctx context.Context, enrollment *storage.Enrollment) error {
	query := `
		INSERT INTO enrollments (student_id, course_id)
		VALUES ($1, $2)
		RETURNING id, enrolled_at
	`
	err := s.conn.Primary().QueryRowContext(ctx, query, enrollment.StudentID, enrollment.CourseID).
		Scan(&enrollment.ID, &enrollment.EnrolledAt)
	return classify("enroll student", err)
}

func (s *PostgresStorage) CompleteLesson(ctx context.Context, completion *storage.LessonCompletion) error {
	query := `
		INSERT INTO lesson_completions (student_id, lesson_id, time_spent)
		VALUES ($1, $2, $3)
		RETURNING id, completed_at
	`
	err := s.conn.Primary().QueryRowContext(ctx, query,
		completion.StudentID,
		completion.LessonID,
		completion.TimeSpent,
	).Scan(&completion.ID, &completion.CompletedAt)
	return classify("complete lesson", err)
}

func (s *PostgresStorage) CreateSubmission(ctx context.Context, submission *storage.Submission) error {
	if submission.Status == "" {
		submission.Status = storage.SubmissionStatusPending
	}
	query := `
		INSERT INTO submissions (student_id, lesson_id, content, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, submitted_at
	`
	err := s.conn.Primary().QueryRowContext(ctx, query,
		submission.StudentID,
		submission.LessonID,
		submission.Content,
		submission.Status,
	).Scan(&submission.ID, &submission.SubmittedAt)
	return classify("create submission", err)
}

func (s *PostgresStorage) ListSubmissions(ctx context.Context, page storage.Page) ([]storage.Submission, error) {
	page = page.Normalize()
	query := `
		SELECT id, student_id, lesson_id, content, status, submitted_at, reviewed_at
		FROM submissions
		ORDER BY id
		LIMIT $1 OFFSET $2
	`
	rows, err := s.conn.Primary().QueryContext(ctx, query, page.Limit, page.Skip)
	if err != nil {
		return nil, classify("list submissions", err)
	}
	defer rows.Close()

	submissions := make([]storage.Submission, 0)
	for rows.Next() {
		var sub storage.Submission
		if err := rows.Scan(&sub.ID, &sub.StudentID, &sub.LessonID, &sub.Content,
			&sub.Status, &sub.SubmittedAt, &sub.ReviewedAt); err != nil {
			return nil, classify("list submissions", err)
		}
		submissions = append(submissions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list submissions", err)
	}
	return submissions, nil
}

// Health

// Ping runs a SELECT 1 round trip against the primary
func (s *PostgresStorage) Ping(ctx context.Context) error {
	var one int
	if err := s.conn.Primary().QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return classify("ping", err)
	}
	return nil
}

// PoolStats sums pool statistics across primary and replicas
func (s *PostgresStorage) PoolStats() sql.DBStats {
	return s.conn.Stats().Total()
}

func (s *PostgresStorage) Backend() string {
	return BackendName
}

func (s *PostgresStorage) Close() error {
	return s.conn.Close()
}
