package api

import (
	"net/http"

	"github.com/learntracker/learntracker/pkg/httputil"
	"github.com/learntracker/learntracker/pkg/storage"
)

func (s *Server) requireStudent(r *http.Request, id int64) error {
	student, err := s.store.GetStudent(r.Context(), id)
	if err != nil {
		return err
	}
	if student == nil {
		return httputil.NotFound(msgStudentNotFound)
	}
	return nil
}

func (s *Server) requireLesson(r *http.Request, id int64) error {
	lesson, err := s.store.GetLesson(r.Context(), id)
	if err != nil {
		return err
	}
	if lesson == nil {
		return httputil.NotFound(msgLessonNotFound)
	}
	return nil
}

func (s *Server) enrollStudent(w http.ResponseWriter, r *http.Request) error {
	course, err := s.requireCourse(r)
	if err != nil {
		return err
	}

	var req EnrollmentCreate
	if err := httputil.ParseJSON(r, &req); err != nil {
		return err
	}
	if err := s.requireStudent(r, req.StudentID); err != nil {
		return err
	}

	enrollment := &storage.Enrollment{StudentID: req.StudentID, CourseID: course.ID}
	if err := s.store.Enroll(r.Context(), enrollment); err != nil {
		return translate(err, msgCourseNotFound, msgAlreadyEnrolled)
	}
	return httputil.WriteMessage(w, msgEnrolled, enrollmentIDField, enrollment.ID)
}

func (s *Server) completeLesson(w http.ResponseWriter, r *http.Request) error {
	lessonID, err := httputil.ParsePathInt64(r, "lesson_id")
	if err != nil {
		return err
	}

	var req LessonCompletionCreate
	if err := httputil.ParseJSON(r, &req); err != nil {
		return err
	}
	if req.TimeSpent != nil && *req.TimeSpent < 0 {
		return httputil.BadRequest(msgNegativeTimeSpent)
	}
	if err := s.requireLesson(r, lessonID); err != nil {
		return err
	}
	if err := s.requireStudent(r, req.StudentID); err != nil {
		return err
	}

	completion := &storage.LessonCompletion{
		StudentID: req.StudentID,
		LessonID:  lessonID,
		TimeSpent: req.TimeSpent,
	}
	if err := s.store.CompleteLesson(r.Context(), completion); err != nil {
		return translate(err, msgLessonNotFound, msgAlreadyCompleted)
	}

	s.metrics.IncLessonCompletion()
	return httputil.WriteMessage(w, msgLessonCompleted, completionIDField, completion.ID)
}

func (s *Server) createSubmission(w http.ResponseWriter, r *http.Request) error {
	var req SubmissionCreate
	if err := httputil.ParseJSON(r, &req); err != nil {
		return err
	}
	if err := httputil.RequireNonEmpty("content", req.Content)(); err != nil {
		return err
	}
	if err := s.requireStudent(r, req.StudentID); err != nil {
		return err
	}
	if err := s.requireLesson(r, req.LessonID); err != nil {
		return err
	}

	submission := &storage.Submission{
		StudentID: req.StudentID,
		LessonID:  req.LessonID,
		Content:   req.Content,
		Status:    storage.SubmissionStatusPending,
	}
	if err := s.store.CreateSubmission(r.Context(), submission); err != nil {
		return translate(err, msgLessonNotFound, "")
	}

	s.metrics.IncSubmission(submission.Status)
	return httputil.WriteCreated(w, submission)
}

func (s *Server) getSubmissions(w http.ResponseWriter, r *http.Request) error {
	page, err := parsePage(r)
	if err != nil {
		return err
	}
	submissions, err := s.store.ListSubmissions(r.Context(), page)
	if err != nil {
		return err
	}
	if submissions == nil {
		submissions = []storage.Submission{}
	}
	return httputil.WriteSuccess(w, submissions)
}
