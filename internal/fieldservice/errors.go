package fieldservice

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceFailure matches any ServiceError via errors.Is.
	ErrServiceFailure = errors.New("field service failure")
	// ErrUnknownShape is returned when an extraction response matches no known shape.
	ErrUnknownShape = errors.New("unknown extraction response shape")
)

const (
	OpExtraction = "extraction"
	OpRedaction  = "redaction"
)

// ServiceError describes a failed call to the external field service.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s service error (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s service error: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceFailure
}

// AsServiceError extracts a ServiceError from err.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
