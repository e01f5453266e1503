// Package memory provides an in-process storage.Store for local development and tests.
// Records are never deleted, so ids are dense and double as slice offsets.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/learntracker/learntracker/pkg/storage"
)

// BackendName is reported by the health endpoint
const BackendName = "memory"

var errClosed = errors.New("store is closed")

var _ storage.Store = (*Store)(nil)

type pair struct{ a, b int64 }

// Store keeps every entity in memory behind a single RWMutex
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	closed      bool
	courses     []storage.Course
	lessons     []storage.Lesson
	students    []storage.Student
	enrollments []storage.Enrollment
	completions []storage.LessonCompletion
	submissions []storage.Submission

	emails      map[string]int64
	enrolled    map[pair]struct{} // (student, course)
	completedBy map[pair]struct{} // (student, lesson)
}

// New creates an empty store
func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		emails:      make(map[string]int64),
		enrolled:    make(map[pair]struct{}),
		completedBy: make(map[pair]struct{}),
	}
}

func (s *Store) checkOpen(op string) error {
	if s.closed {
		return storage.NewDataAccessError(op, errClosed)
	}
	return nil
}

func nextID(n int) int64 { return int64(n) + 1 }

func inRange(id int64, n int) bool { return id >= 1 && id <= int64(n) }

func page[T any](items []T, p storage.Page) []T {
	p = p.Normalize()
	if p.Skip >= len(items) {
		return []T{}
	}
	end := p.Skip + p.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-p.Skip)
	copy(out, items[p.Skip:end])
	return out
}

// Courses and lessons

func (s *Store) CreateCourse(ctx context.Context, course *storage.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("create course"); err != nil {
		return err
	}

	course.ID = nextID(len(s.courses))
	course.CreatedAt = s.now()
	s.courses = append(s.courses, *course)
	return nil
}

func (s *Store) GetCourse(ctx context.Context, id int64) (*storage.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("get course"); err != nil {
		return nil, err
	}

	if !inRange(id, len(s.courses)) {
		return nil, nil
	}
	c := s.courses[id-1]
	return &c, nil
}

func (s *Store) ListCourses(ctx context.Context, p storage.Page) ([]storage.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list courses"); err != nil {
		return nil, err
	}
	return page(s.courses, p), nil
}

func (s *Store) ListAllCourses(ctx context.Context) ([]storage.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list all courses"); err != nil {
		return nil, err
	}
	out := make([]storage.Course, len(s.courses))
	copy(out, s.courses)
	return out, nil
}

func (s *Store) CreateLesson(ctx context.Context, lesson *storage.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("create lesson"); err != nil {
		return err
	}
	if !inRange(lesson.CourseID, len(s.courses)) {
		return fmt.Errorf("create lesson: course %d: %w", lesson.CourseID, storage.ErrNotFound)
	}

	lesson.ID = nextID(len(s.lessons))
	lesson.CreatedAt = s.now()
	s.lessons = append(s.lessons, *lesson)
	return nil
}

func (s *Store) GetLesson(ctx context.Context, id int64) (*storage.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("get lesson"); err != nil {
		return nil, err
	}

	if !inRange(id, len(s.lessons)) {
		return nil, nil
	}
	l := s.lessons[id-1]
	return &l, nil
}

// ListLessons returns the course's lessons ordered by OrderNum, then id
func (s *Store) ListLessons(ctx context.Context, courseID int64) ([]storage.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list lessons"); err != nil {
		return nil, err
	}

	lessons := make([]storage.Lesson, 0)
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, l)
		}
	}
	sortLessons(lessons)
	return lessons, nil
}

// Students

func (s *Store) CreateStudent(ctx context.Context, student *storage.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("create student"); err != nil {
		return err
	}
	if _, ok := s.emails[student.Email]; ok {
		return fmt.Errorf("create student: email %s: %w", student.Email, storage.ErrConflict)
	}

	student.ID = nextID(len(s.students))
	student.CreatedAt = s.now()
	s.students = append(s.students, *student)
	s.emails[student.Email] = student.ID
	return nil
}

func (s *Store) GetStudent(ctx context.Context, id int64) (*storage.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("get student"); err != nil {
		return nil, err
	}

	if !inRange(id, len(s.students)) {
		return nil, nil
	}
	st := s.students[id-1]
	return &st, nil
}

func (s *Store) GetStudentByEmail(ctx context.Context, email string) (*storage.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("get student by email"); err != nil {
		return nil, err
	}

	id, ok := s.emails[email]
	if !ok {
		return nil, nil
	}
	st := s.students[id-1]
	return &st, nil
}

// Progress

func (s *Store) Enroll(ctx context.Context, enrollment *storage.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("enroll student"); err != nil {
		return err
	}
	if !inRange(enrollment.StudentID, len(s.students)) || !inRange(enrollment.CourseID, len(s.courses)) {
		return fmt.Errorf("enroll student: %w", storage.ErrNotFound)
	}
	key := pair{enrollment.StudentID, enrollment.CourseID}
	if _, ok := s.enrolled[key]; ok {
		return fmt.Errorf("enroll student: %w", storage.ErrConflict)
	}

	enrollment.ID = nextID(len(s.enrollments))
	enrollment.EnrolledAt = s.now()
	s.enrollments = append(s.enrollments, *enrollment)
	s.enrolled[key] = struct{}{}
	return nil
}

func (s *Store) CompleteLesson(ctx context.Context, completion *storage.LessonCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("complete lesson"); err != nil {
		return err
	}
	if !inRange(completion.StudentID, len(s.students)) || !inRange(completion.LessonID, len(s.lessons)) {
		return fmt.Errorf("complete lesson: %w", storage.ErrNotFound)
	}
	key := pair{completion.StudentID, completion.LessonID}
	if _, ok := s.completedBy[key]; ok {
		return fmt.Errorf("complete lesson: %w", storage.ErrConflict)
	}

	completion.ID = nextID(len(s.completions))
	completion.CompletedAt = s.now()
	s.completions = append(s.completions, *completion)
	s.completedBy[key] = struct{}{}
	return nil
}

func (s *Store) CreateSubmission(ctx context.Context, submission *storage.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("create submission"); err != nil {
		return err
	}
	if !inRange(submission.StudentID, len(s.students)) || !inRange(submission.LessonID, len(s.lessons)) {
		return fmt.Errorf("create submission: %w", storage.ErrNotFound)
	}

	if submission.Status == "" {
		submission.Status = storage.SubmissionStatusPending
	}
	submission.ID = nextID(len(s.submissions))
	submission.SubmittedAt = s.now()
	s.submissions = append(s.submissions, *submission)
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context, p storage.Page) ([]storage.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list submissions"); err != nil {
		return nil, err
	}
	return page(s.submissions, p), nil
}

// Health

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen("ping")
}

// PoolStats is always zero; there is no connection pool
func (s *Store) PoolStats() sql.DBStats {
	return sql.DBStats{}
}

func (s *Store) Backend() string {
	return BackendName
}

// Close marks the store closed; every later call fails with a data-access error
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
