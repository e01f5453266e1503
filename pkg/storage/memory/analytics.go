package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/learntracker/learntracker/pkg/storage"
)

func sortLessons(lessons []storage.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].OrderNum != lessons[j].OrderNum {
			return lessons[i].OrderNum < lessons[j].OrderNum
		}
		return lessons[i].ID < lessons[j].ID
	})
}

// lessonCourse returns the owning course of a lesson id
func (s *Store) lessonCourse(lessonID int64) int64 {
	if !inRange(lessonID, len(s.lessons)) {
		return 0
	}
	return s.lessons[lessonID-1].CourseID
}

// countWhere counts items matching keep under the read lock
func countWhere[T any](s *Store, op string, items func() []T, keep func(T) bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(op); err != nil {
		return 0, err
	}

	var n int64
	for _, item := range items() {
		if keep(item) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountEnrollmentsByCourse(ctx context.Context, courseID int64) (int64, error) {
	// (student, course) is unique, so every enrollment is a distinct student
	return countWhere(s, "count enrollments by course",
		func() []storage.Enrollment { return s.enrollments },
		func(e storage.Enrollment) bool { return e.CourseID == courseID })
}

func (s *Store) CountEnrollmentsByStudent(ctx context.Context, studentID int64) (int64, error) {
	return countWhere(s, "count enrollments by student",
		func() []storage.Enrollment { return s.enrollments },
		func(e storage.Enrollment) bool { return e.StudentID == studentID })
}

func (s *Store) CountCompletionsByCourse(ctx context.Context, courseID int64) (int64, error) {
	return countWhere(s, "count completions by course",
		func() []storage.LessonCompletion { return s.completions },
		func(c storage.LessonCompletion) bool { return s.lessonCourse(c.LessonID) == courseID })
}

func (s *Store) CountCompletionsByStudent(ctx context.Context, studentID int64) (int64, error) {
	// (student, lesson) is unique, so completions are already distinct lessons
	return countWhere(s, "count completions by student",
		func() []storage.LessonCompletion { return s.completions },
		func(c storage.LessonCompletion) bool { return c.StudentID == studentID })
}

func (s *Store) CountLessonsAcrossEnrollments(ctx context.Context, studentID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("count lessons across enrollments"); err != nil {
		return 0, err
	}

	perCourse := make(map[int64]int64)
	for _, l := range s.lessons {
		perCourse[l.CourseID]++
	}

	var n int64
	for _, e := range s.enrollments {
		if e.StudentID == studentID {
			n += perCourse[e.CourseID]
		}
	}
	return n, nil
}

func (s *Store) AverageCompletionTime(ctx context.Context, courseID int64) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("average completion time"); err != nil {
		return nil, err
	}

	var sum, n int64
	for _, c := range s.completions {
		if c.TimeSpent == nil || s.lessonCourse(c.LessonID) != courseID {
			continue
		}
		sum += *c.TimeSpent
		n++
	}
	if n == 0 {
		return nil, nil
	}
	avg := float64(sum) / float64(n)
	return &avg, nil
}

func (s *Store) CountAll(ctx context.Context, kind storage.EntityKind) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("count " + string(kind)); err != nil {
		return 0, err
	}

	switch kind {
	case storage.KindCourse:
		return int64(len(s.courses)), nil
	case storage.KindLesson:
		return int64(len(s.lessons)), nil
	case storage.KindStudent:
		return int64(len(s.students)), nil
	case storage.KindEnrollment:
		return int64(len(s.enrollments)), nil
	case storage.KindLessonCompletion:
		return int64(len(s.completions)), nil
	case storage.KindSubmission:
		return int64(len(s.submissions)), nil
	}
	return 0, fmt.Errorf("unknown entity kind %q", kind)
}
