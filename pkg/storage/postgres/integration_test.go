//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/learntracker/learntracker/pkg/storage"
)

// setupPostgresStorage starts a throwaway PostgreSQL and returns a migrated store
func setupPostgresStorage(t *testing.T) *PostgresStorage {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("learntracker_test"),
		tcpostgres.WithUsername("learntracker"),
		tcpostgres.WithPassword("learntracker_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.PostgresURL = connStr
	s, err := NewPostgresStorage(ctx, cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestIntegration_CourseAnalyticsInputs(t *testing.T) {
	s := setupPostgresStorage(t)
	ctx := context.Background()

	course := &storage.Course{Title: "Go"}
	require.NoError(t, s.CreateCourse(ctx, course))

	var lessons []*storage.Lesson
	for i := 1; i <= 3; i++ {
		l := &storage.Lesson{CourseID: course.ID, Title: "Lesson", OrderNum: i}
		require.NoError(t, s.CreateLesson(ctx, l))
		lessons = append(lessons, l)
	}

	alice := &storage.Student{Name: "Alice", Email: "alice@example.com"}
	bob := &storage.Student{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, s.CreateStudent(ctx, alice))
	require.NoError(t, s.CreateStudent(ctx, bob))

	require.NoError(t, s.Enroll(ctx, &storage.Enrollment{StudentID: alice.ID, CourseID: course.ID}))
	require.NoError(t, s.Enroll(ctx, &storage.Enrollment{StudentID: bob.ID, CourseID: course.ID}))

	for i, spent := range []int64{10, 20, 30} {
		spent := spent
		student := alice
		if i == 2 {
			student = bob
		}
		require.NoError(t, s.CompleteLesson(ctx, &storage.LessonCompletion{
			StudentID: student.ID, LessonID: lessons[i%2].ID, TimeSpent: &spent,
		}))
	}

	enrolled, err := s.CountEnrollmentsByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), enrolled)

	completed, err := s.CountCompletionsByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), completed)

	avg, err := s.AverageCompletionTime(ctx, course.ID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 20.0, *avg, 0.0001)

	available, err := s.CountLessonsAcrossEnrollments(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), available)
}

func TestIntegration_UniquenessRules(t *testing.T) {
	s := setupPostgresStorage(t)
	ctx := context.Background()

	course := &storage.Course{Title: "SQL"}
	require.NoError(t, s.CreateCourse(ctx, course))
	student := &storage.Student{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, s.CreateStudent(ctx, student))

	err := s.CreateStudent(ctx, &storage.Student{Name: "Other", Email: "ada@example.com"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, s.Enroll(ctx, &storage.Enrollment{StudentID: student.ID, CourseID: course.ID}))
	err = s.Enroll(ctx, &storage.Enrollment{StudentID: student.ID, CourseID: course.ID})
	assert.ErrorIs(t, err, storage.ErrConflict)

	err = s.Enroll(ctx, &storage.Enrollment{StudentID: student.ID, CourseID: 9999})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_EmptyCourse(t *testing.T) {
	s := setupPostgresStorage(t)
	ctx := context.Background()

	course := &storage.Course{Title: "Empty"}
	require.NoError(t, s.CreateCourse(ctx, course))

	avg, err := s.AverageCompletionTime(ctx, course.ID)
	require.NoError(t, err)
	assert.Nil(t, avg)

	n, err := s.CountAll(ctx, storage.KindCourse)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Ping(ctx))
}

func TestIntegration_DeleteCourseCascades(t *testing.T) {
	s := setupPostgresStorage(t)
	ctx := context.Background()

	course := &storage.Course{Title: "Cascade"}
	require.NoError(t, s.CreateCourse(ctx, course))
	lesson := &storage.Lesson{CourseID: course.ID, Title: "Only", OrderNum: 1}
	require.NoError(t, s.CreateLesson(ctx, lesson))
	student := &storage.Student{Name: "Ada", Email: "cascade@example.com"}
	require.NoError(t, s.CreateStudent(ctx, student))

	require.NoError(t, s.Enroll(ctx, &storage.Enrollment{StudentID: student.ID, CourseID: course.ID}))
	require.NoError(t, s.CompleteLesson(ctx, &storage.LessonCompletion{StudentID: student.ID, LessonID: lesson.ID}))
	require.NoError(t, s.CreateSubmission(ctx, &storage.Submission{
		StudentID: student.ID, LessonID: lesson.ID, Content: "answer", Status: storage.SubmissionStatusPending,
	}))

	_, err := s.Connections().Primary().ExecContext(ctx, "DELETE FROM courses WHERE id = $1", course.ID)
	require.NoError(t, err)

	got, err := s.GetLesson(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, kind := range []storage.EntityKind{storage.KindLessonCompletion, storage.KindSubmission, storage.KindEnrollment} {
		n, err := s.CountAll(ctx, kind)
		require.NoError(t, err)
		assert.Zero(t, n, string(kind))
	}
}
