package api

// maxTitleLength bounds course titles, lesson titles and student names
const maxTitleLength = 255

// CourseCreate is the body of POST /api/v1/courses
type CourseCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// LessonCreate is the body of POST /api/v1/courses/{course_id}/lessons
type LessonCreate struct {
	Title    string  `json:"title"`
	Content  *string `json:"content"`
	OrderNum int     `json:"order_num"`
}

// StudentCreate is the body of POST /api/v1/students
type StudentCreate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EnrollmentCreate is the body of POST /api/v1/courses/{course_id}/enroll
type EnrollmentCreate struct {
	StudentID int64 `json:"student_id"`
}

// LessonCompletionCreate is the body of POST /api/v1/lessons/{lesson_id}/complete
type LessonCompletionCreate struct {
	StudentID int64  `json:"student_id"`
	TimeSpent *int64 `json:"time_spent"` // seconds
}

// SubmissionCreate is the body of POST /api/v1/submissions
type SubmissionCreate struct {
	StudentID int64  `json:"student_id"`
	LessonID  int64  `json:"lesson_id"`
	Content   string `json:"content"`
}

// Response messages shared with clients and dashboards
const (
	msgStudentNotFound   = "Student not found"
	msgCourseNotFound    = "Course not found"
	msgLessonNotFound    = "Lesson not found"
	msgDuplicateEmail    = "Student with this email already exists"
	msgAlreadyEnrolled   = "Student already enrolled in this course"
	msgAlreadyCompleted  = "Lesson already completed by this student"
	msgEnrolled          = "Student enrolled successfully"
	msgLessonCompleted   = "Lesson completed successfully"
	enrollmentIDField    = "enrollment_id"
	completionIDField    = "completion_id"
	msgNegativeTimeSpent = "time_spent must not be negative"
)
