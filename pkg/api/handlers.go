package api

import (
	"errors"
	"net/http"

	"github.com/learntracker/learntracker/pkg/httputil"
	"github.com/learntracker/learntracker/pkg/storage"
)

// translate maps storage error kinds onto client errors. Data-access faults
// pass through and become 500s with their detail.
func translate(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound) && notFound != "":
		return httputil.NotFound(notFound)
	case errors.Is(err, storage.ErrConflict) && conflict != "":
		return httputil.BadRequest(conflict)
	}
	return err
}

func parsePage(r *http.Request) (storage.Page, error) {
	skip, err := httputil.ParseQueryInt(r, "skip", 0)
	if err != nil {
		return storage.Page{}, err
	}
	limit, err := httputil.ParseQueryInt(r, "limit", storage.DefaultPageLimit)
	if err != nil {
		return storage.Page{}, err
	}
	return storage.Page{Skip: skip, Limit: limit}.Normalize(), nil
}

// Students

func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) error {
	var req StudentCreate
	if err := httputil.ParseJSON(r, &req); err != nil {
		return err
	}
	if err := httputil.ValidateAll(
		httputil.RequireNonEmpty("name", req.Name),
		httputil.RequireMaxLength("name", req.Name, maxTitleLength),
		httputil.RequireEmail("email", req.Email),
	); err != nil {
		return err
	}

	existing, err := s.store.GetStudentByEmail(r.Context(), req.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return httputil.BadRequest(msgDuplicateEmail)
	}

	student := &storage.Student{Name: req.Name, Email: req.Email}
	if err := s.store.CreateStudent(r.Context(), student); err != nil {
		return translate(err, "", msgDuplicateEmail)
	}
	return httputil.WriteCreated(w, student)
}

func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.ParsePathInt64(r, "student_id")
	if err != nil {
		return err
	}
	student, err := s.store.GetStudent(r.Context(), id)
	if err != nil {
		return err
	}
	if student == nil {
		return httputil.NotFound(msgStudentNotFound)
	}
	return httputil.WriteSuccess(w, student)
}

// Courses

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) error {
	var req CourseCreate
	if err := httputil.ParseJSON(r, &req); err != nil {
		return err
	}
	if err := httputil.ValidateAll(
		httputil.RequireNonEmpty("title", req.Title),
		httputil.RequireMaxLength("title", req.Title, maxTitleLength),
	); err != nil {
		return err
	}

	course := &storage.Course{Title: req.Title, Description: req.Description}
	if err := s.store.CreateCourse(r.Context(), course); err != nil {
		return err
	}
	return httputil.WriteCreated(w, course)
}

func (s *Server) getCourses(w http.ResponseWriter, r *http.Request) error {
	page, err := parsePage(r)
	if err != nil {
		return err
	}
	courses, err := s.store.ListCourses(r.Context(), page)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []storage.Course{}
	}
	return httputil.WriteSuccess(w, courses)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) error {
	course, err := s.requireCourse(r)
	if err != nil {
		return err
	}
	return httputil.WriteSuccess(w, course)
}

// requireCourse loads the course named by the course_id path parameter, or 404s
func (s *Server) requireCourse(r *http.Request) (*storage.Course, error) {
	id, err := httputil.ParsePathInt64(r, "course_id")
	if err != nil {
		return nil, err
	}
	course, err := s.store.GetCourse(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, httputil.NotFound(msgCourseNotFound)
	}
	return course, nil
}

func (s *Server) getCourseLessons(w http.ResponseWriter, r *http.Request) error {
	course, err := s.requireCourse(r)
	if err != nil {
		return err
	}
	lessons, err := s.store.ListLessons(r.Context(), course.ID)
	if err != nil {
		return err
	}
	if lessons == nil {
		lessons = []storage.Lesson{}
	}
	return httputil.WriteSuccess(w, lessons)
}

func (s *Server) createLesson(w http.ResponseWriter, r *http.Request) error {
	course, err := s.requireCourse(r)
	if err != nil {
		return err
	}

	var req LessonCreate
	if err := httputil.ParseJSON(r, &req); err != nil {
		return err
	}
	if err := httputil.ValidateAll(
		httputil.RequireNonEmpty("title", req.Title),
		httputil.RequireMaxLength("title", req.Title, maxTitleLength),
	); err != nil {
		return err
	}

	lesson := &storage.Lesson{
		CourseID: course.ID,
		Title:    req.Title,
		Content:  req.Content,
		OrderNum: req.OrderNum,
	}
	if err := s.store.CreateLesson(r.Context(), lesson); err != nil {
		return translate(err, msgCourseNotFound, "")
	}
	return httputil.WriteCreated(w, lesson)
}
