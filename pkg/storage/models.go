package storage

import "time"

// Course is a unit of study that owns lessons and receives enrollments
type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Lesson belongs to exactly one course and is ordered by OrderNum within it
type Lesson struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Title     string    `json:"title"`
	Content   *string   `json:"content"`
	OrderNum  int       `json:"order_num"`
	CreatedAt time.Time `json:"created_at"`
}

// Student is a learner identified by a unique email
type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment links a student to a course. At most one per (student, course).
type Enrollment struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	CourseID   int64     `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// LessonCompletion records that a student finished a lesson. At most one per (student, lesson).
type LessonCompletion struct {
	ID          int64     `json:"id"`
	StudentID   int64     `json:"student_id"`
	LessonID    int64     `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
	TimeSpent   *int64    `json:"time_spent"` // seconds
}

// SubmissionStatusPending is the status every new submission starts in
const SubmissionStatusPending = "pending"

// Submission is a student's answer to a lesson assignment
type Submission struct {
	ID          int64      `json:"id"`
	StudentID   int64      `json:"student_id"`
	LessonID    int64      `json:"lesson_id"`
	Content     string     `json:"content"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// EntityKind names a persisted entity for whole-table counts
type EntityKind string

const (
	KindCourse           EntityKind = "courses"
	KindLesson           EntityKind = "lessons"
	KindStudent          EntityKind = "students"
	KindEnrollment       EntityKind = "enrollments"
	KindLessonCompletion EntityKind = "lesson_completions"
	KindSubmission       EntityKind = "submissions"
)

// Valid reports whether k is one of the known entity kinds
func (k EntityKind) Valid() bool {
	switch k {
	case KindCourse, KindLesson, KindStudent, KindEnrollment, KindLessonCompletion, KindSubmission:
		return true
	}
	return false
}

// Page bounds list queries
type Page struct {
	Skip  int
	Limit int
}

const (
	// DefaultPageLimit is used when a list request does not specify a limit
	DefaultPageLimit = 100
	// MaxPageLimit caps any requested limit
	MaxPageLimit = 100
)

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
