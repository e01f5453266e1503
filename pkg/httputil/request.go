package httputil

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"unicode/utf8"

	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into the destination.
// Failures are 400 HTTPErrors.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid JSON: %v", err)
	}
	return nil
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryInt extracts and parses an integer query parameter
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// Validator checks one field and returns a 400 HTTPError when it is invalid
type Validator func() error

// ValidateAll returns the first validation failure
func ValidateAll(validators ...Validator) error {
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// RequireNonEmpty validates that a string field is not empty
func RequireNonEmpty(fieldName, value string) Validator {
	return func() error {
		if value == "" {
			return NewHTTPError(http.StatusBadRequest, "%s is required", fieldName)
		}
		return nil
	}
}

// RequireMaxLength validates that a string field has at most max characters
func RequireMaxLength(fieldName, value string, max int) Validator {
	return func() error {
		if utf8.RuneCountInString(value) > max {
			return NewHTTPError(http.StatusBadRequest, "%s must be at most %d characters", fieldName, max)
		}
		return nil
	}
}

// RequirePositive validates that an id is positive
func RequirePositive(fieldName string, value int64) Validator {
	return func() error {
		if value <= 0 {
			return NewHTTPError(http.StatusBadRequest, "%s must be positive", fieldName)
		}
		return nil
	}
}

// RequireEmail validates a bare email address (no display name)
func RequireEmail(fieldName, value string) Validator {
	return func() error {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return NewHTTPError(http.StatusBadRequest, "%s is not a valid email address", fieldName)
		}
		return nil
	}
}
