package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learntracker/learntracker/pkg/storage"
	"github.com/learntracker/learntracker/pkg/storage/memory"
)

// fakeReader serves fixed per-id counts and can fail on a named call
type fakeReader struct {
	courses               []storage.Course
	students              map[int64]storage.Student
	enrollmentsByCourse   map[int64]int64
	completionsByCourse   map[int64]int64
	averages              map[int64]float64
	enrollmentsByStudent  map[int64]int64
	completionsByStudent  map[int64]int64
	lessonsAcrossEnrolled map[int64]int64

	failOn string
	err    error
}

func (f *fakeReader) fail(call string) error {
	if f.failOn == call {
		return f.err
	}
	return nil
}

func (f *fakeReader) CountEnrollmentsByCourse(ctx context.Context, id int64) (int64, error) {
	return f.enrollmentsByCourse[id], f.fail("CountEnrollmentsByCourse")
}

func (f *fakeReader) CountEnrollmentsByStudent(ctx context.Context, id int64) (int64, error) {
	return f.enrollmentsByStudent[id], f.fail("CountEnrollmentsByStudent")
}

func (f *fakeReader) CountCompletionsByCourse(ctx context.Context, id int64) (int64, error) {
	return f.completionsByCourse[id], f.fail("CountCompletionsByCourse")
}

func (f *fakeReader) CountCompletionsByStudent(ctx context.Context, id int64) (int64, error) {
	return f.completionsByStudent[id], f.fail("CountCompletionsByStudent")
}

func (f *fakeReader) CountLessonsAcrossEnrollments(ctx context.Context, id int64) (int64, error) {
	return f.lessonsAcrossEnrolled[id], f.fail("CountLessonsAcrossEnrollments")
}

func (f *fakeReader) AverageCompletionTime(ctx context.Context, id int64) (*float64, error) {
	if err := f.fail("AverageCompletionTime"); err != nil {
		return nil, err
	}
	avg, ok := f.averages[id]
	if !ok {
		return nil, nil
	}
	return &avg, nil
}

func (f *fakeReader) ListAllCourses(ctx context.Context) ([]storage.Course, error) {
	return f.courses, f.fail("ListAllCourses")
}

func (f *fakeReader) GetStudent(ctx context.Context, id int64) (*storage.Student, error) {
	if err := f.fail("GetStudent"); err != nil {
		return nil, err
	}
	st, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (f *fakeReader) CountAll(ctx context.Context, kind storage.EntityKind) (int64, error) {
	return 0, nil
}

func TestEngine_CourseAnalytics(t *testing.T) {
	reader := &fakeReader{
		courses: []storage.Course{
			{ID: 1, Title: "Go"},
			{ID: 2, Title: "Empty"},
		},
		enrollmentsByCourse: map[int64]int64{1: 2},
		completionsByCourse: map[int64]int64{1: 3},
		averages:            map[int64]float64{1: 20.0},
	}

	got, err := NewEngine(reader).CourseAnalytics(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].CourseID)
	assert.Equal(t, "Go", got[0].CourseTitle)
	assert.Equal(t, int64(2), got[0].TotalStudents)
	assert.Equal(t, int64(3), got[0].CompletedLessons)
	require.NotNil(t, got[0].AvgCompletionTime)
	assert.Equal(t, 20.0, *got[0].AvgCompletionTime)

	assert.Equal(t, CourseAnalytics{CourseID: 2, CourseTitle: "Empty"}, got[1])
}

func TestEngine_CourseAnalyticsNoCourses(t *testing.T) {
	got, err := NewEngine(&fakeReader{}).CourseAnalytics(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEngine_FaultsPropagateUnchanged(t *testing.T) {
	sentinel := storage.NewDataAccessError("count", errors.New("connection reset"))

	for _, call := range []string{"ListAllCourses", "CountEnrollmentsByCourse", "CountCompletionsByCourse", "AverageCompletionTime"} {
		t.Run("course analytics "+call, func(t *testing.T) {
			reader := &fakeReader{courses: []storage.Course{{ID: 1}}, failOn: call, err: sentinel}
			_, err := NewEngine(reader).CourseAnalytics(context.Background())
			assert.Same(t, sentinel, err)
		})
	}

	for _, call := range []string{"CountEnrollmentsByStudent", "CountCompletionsByStudent", "CountLessonsAcrossEnrollments", "GetStudent"} {
		t.Run("student progress "+call, func(t *testing.T) {
			reader := &fakeReader{failOn: call, err: sentinel}
			_, err := NewEngine(reader).StudentProgress(context.Background(), 1)
			assert.Same(t, sentinel, err)
		})
	}
}

func TestEngine_StudentProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		available int64
		want      float64
	}{
		{name: "half of two courses", completed: 4, available: 8, want: 50.0},
		{name: "one of three", completed: 1, available: 3, want: 33.33},
		{name: "two of three rounds up", completed: 2, available: 3, want: 66.67},
		{name: "nothing available", completed: 0, available: 0, want: 0},
		{name: "all done", completed: 5, available: 5, want: 100},
		{name: "exact half rounds up", completed: 23, available: 160, want: 14.38},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{
				students:              map[int64]storage.Student{7: {ID: 7, Name: "Ada"}},
				enrollmentsByStudent:  map[int64]int64{7: 2},
				completionsByStudent:  map[int64]int64{7: tt.completed},
				lessonsAcrossEnrolled: map[int64]int64{7: tt.available},
			}

			got, err := NewEngine(reader).StudentProgress(context.Background(), 7)
			require.NoError(t, err)
			assert.Equal(t, int64(7), got.StudentID)
			assert.Equal(t, "Ada", got.StudentName)
			assert.Equal(t, int64(2), got.TotalEnrollments)
			assert.Equal(t, tt.completed, got.CompletedLessons)
			assert.Equal(t, tt.available, got.TotalLessonsAvailable)
			assert.Equal(t, tt.want, got.CompletionPercentage)
		})
	}
}

func TestEngine_StudentProgressUnknownStudent(t *testing.T) {
	got, err := NewEngine(&fakeReader{}).StudentProgress(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, UnknownStudentName, got.StudentName)
	assert.Equal(t, 0.0, got.CompletionPercentage)
}

func TestEngine_SimulatedLatency(t *testing.T) {
	var slept []time.Duration
	engine := NewEngine(&fakeReader{}, WithSimulatedLatency(100*time.Millisecond, 50*time.Millisecond))
	engine.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, err := engine.CourseAnalytics(context.Background())
	require.NoError(t, err)
	_, err = engine.StudentProgress(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 50 * time.Millisecond}, slept)

	slept = nil
	plain := NewEngine(&fakeReader{})
	plain.sleep = func(d time.Duration) { slept = append(slept, d) }
	_, _ = plain.CourseAnalytics(context.Background())
	assert.Empty(t, slept)
}

func TestEngine_AgainstMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	goCourse := &storage.Course{Title: "Go"}
	sqlCourse := &storage.Course{Title: "SQL"}
	require.NoError(t, store.CreateCourse(ctx, goCourse))
	require.NoError(t, store.CreateCourse(ctx, sqlCourse))

	var goLessons []*storage.Lesson
	for i := 1; i <= 5; i++ {
		l := &storage.Lesson{CourseID: goCourse.ID, Title: "Go lesson", OrderNum: i}
		require.NoError(t, store.CreateLesson(ctx, l))
		goLessons = append(goLessons, l)
	}
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.CreateLesson(ctx, &storage.Lesson{CourseID: sqlCourse.ID, Title: "SQL lesson", OrderNum: i}))
	}

	ada := &storage.Student{Name: "Ada", Email: "ada@example.com"}
	bob := &storage.Student{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, store.CreateStudent(ctx, ada))
	require.NoError(t, store.CreateStudent(ctx, bob))

	require.NoError(t, store.Enroll(ctx, &storage.Enrollment{StudentID: ada.ID, CourseID: goCourse.ID}))
	require.NoError(t, store.Enroll(ctx, &storage.Enrollment{StudentID: ada.ID, CourseID: sqlCourse.ID}))
	require.NoError(t, store.Enroll(ctx, &storage.Enrollment{StudentID: bob.ID, CourseID: goCourse.ID}))

	spent := []int64{10, 20, 30, 40}
	for i := 0; i < 4; i++ {
		require.NoError(t, store.CompleteLesson(ctx, &storage.LessonCompletion{
			StudentID: ada.ID, LessonID: goLessons[i].ID, TimeSpent: &spent[i],
		}))
	}

	engine := NewEngine(store)

	progress, err := engine.StudentProgress(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), progress.TotalEnrollments)
	assert.Equal(t, int64(4), progress.CompletedLessons)
	assert.Equal(t, int64(8), progress.TotalLessonsAvailable)
	assert.Equal(t, 50.0, progress.CompletionPercentage)

	report, err := engine.CourseAnalytics(ctx)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, int64(2), report[0].TotalStudents)
	assert.Equal(t, int64(4), report[0].CompletedLessons)
	require.NotNil(t, report[0].AvgCompletionTime)
	assert.Equal(t, 25.0, *report[0].AvgCompletionTime)
	assert.Equal(t, int64(1), report[1].TotalStudents)
	assert.Nil(t, report[1].AvgCompletionTime)
}

func TestCourseAnalytics_JSONShape(t *testing.T) {
	body, err := json.Marshal(CourseAnalytics{CourseID: 1, CourseTitle: "Go"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"course_id":1,"course_title":"Go","total_students":0,"completed_lessons":0,"avg_completion_time":null}`, string(body))
}

func TestCompletionPercentage(t *testing.T) {
	tests := []struct {
		completed, available int64
		want                 float64
	}{
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{23, 160, 14.38},
		{41, 160, 25.63},
		{51, 160, 31.88},
		{1, 800, 0.13},
		{0, 7, 0},
		{7, 7, 100},
		{3, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionPercentage(tt.completed, tt.available),
			"%d/%d", tt.completed, tt.available)
	}
}

// big.Rat.FloatString rounds halves away from zero on the exact value
func TestCompletionPercentage_MatchesExactHalfUp(t *testing.T) {
	for available := int64(1); available <= 400; available++ {
		for completed := int64(0); completed <= available; completed++ {
			exact := new(big.Rat).SetFrac64(completed*100, available).FloatString(2)
			want, err := strconv.ParseFloat(exact, 64)
			require.NoError(t, err)
			if got := CompletionPercentage(completed, available); got != want {
				t.Fatalf("CompletionPercentage(%d, %d) = %v, want %v", completed, available, got, want)
			}
		}
	}
}
