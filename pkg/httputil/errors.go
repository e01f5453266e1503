package httputil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/learntracker/learntracker/pkg/observability"
	"github.com/learntracker/learntracker/pkg/storage"
)

// HTTPError is an error that carries the response status to send
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an HTTPError with a formatted message
func NewHTTPError(status int, format string, args ...interface{}) *HTTPError {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// BadRequest creates a 400 error
func BadRequest(message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Message: message}
}

// NotFound creates a 404 error
func NotFound(message string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Message: message}
}

// StatusCode returns the status carried by err, or 500
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return http.StatusInternalServerError
}

// HandlerFunc is an http handler that reports failure by returning an error.
// The returned error is written as {"error": "..."} with StatusCode(err).
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}

	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger := observability.FromContext(r.Context()).WithError(err)
		if storage.IsDataAccess(err) {
			logger.WithField("data_access", true).Error("Data access failed")
		} else {
			logger.Error("Request failed")
		}
	}
	WriteErrorMessage(w, status, err.Error())
}
