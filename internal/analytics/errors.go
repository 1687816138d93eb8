package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks filter validation failures (HTTP 400).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable wraps transport and profile-lookup failures.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrSchemaMismatch means the index rejected an aggregation on a field.
	ErrSchemaMismatch = errors.New("aggregation field not available")
	// ErrNoData is returned by a Strategy that found nothing.
	ErrNoData = errors.New("no data")
)

// ComputationError is returned for every non-validation failure of an operation.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("analytics %s failed: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
