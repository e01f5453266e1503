package api

import (
	"net/http"

	"github.com/learntracker/learntracker/pkg/analytics"
	"github.com/learntracker/learntracker/pkg/httputil"
)

// getStudentProgress checks the student exists before asking the engine,
// which would otherwise report an "Unknown" student with zero progress
func (s *Server) getStudentProgress(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.ParsePathInt64(r, "student_id")
	if err != nil {
		return err
	}
	if err := s.requireStudent(r, id); err != nil {
		return err
	}

	progress, err := s.engine.StudentProgress(r.Context(), id)
	if err != nil {
		return err
	}
	return httputil.WriteSuccess(w, progress)
}

func (s *Server) getCourseAnalytics(w http.ResponseWriter, r *http.Request) error {
	records, err := s.engine.CourseAnalytics(r.Context())
	if err != nil {
		return err
	}
	if records == nil {
		records = []analytics.CourseAnalytics{}
	}
	return httputil.WriteSuccess(w, records)
}
