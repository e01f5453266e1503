package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness rule would be violated
	// (duplicate email, repeated enrollment, repeated completion)
	ErrConflict = errors.New("conflict")
)

// DataAccessError reports a failure reaching or querying the underlying store
type DataAccessError struct {
	Op  string
	Err error
}

// NewDataAccessError wraps err as a data-access fault for operation op.
// A nil err yields nil.
func NewDataAccessError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DataAccessError{Op: op, Err: err}
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed during %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// IsDataAccess reports whether err is, or wraps, a DataAccessError
func IsDataAccess(err error) bool {
	var dae *DataAccessError
	return errors.As(err, &dae)
}
