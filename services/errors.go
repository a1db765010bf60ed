package services

import (
	"errors"
	"fmt"

	"github.com/sahilchouksey/course-review-api/utils/validation"
)

var (
	// ErrNotFound is returned by stores when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned by stores when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")

	// ErrForbidden is returned when a user acts on a record they do not own
	ErrForbidden = errors.New("not allowed")

	// ErrConsistencyRetry marks a statistics recompute that lost a race with
	// another writer and is safe to run again
	ErrConsistencyRetry = errors.New("concurrent statistics update, retry")

	// ErrStatisticsStale means the review was stored but the course
	// statistics could not be recomputed after retrying
	ErrStatisticsStale = errors.New("course statistics could not be recomputed")
)

// ValidationError reports a bad field value. It never changes state and is
// never retried.
type ValidationError struct {
	Field   string
	Message string
	// Fields holds one message per failing field when more than one failed
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// structValidationError converts the validator's error for a request struct.
// Field and Message name the first failure.
func structValidationError(err error, resource string) error {
	field, msg, ok := validation.FirstFieldError(err)
	if !ok {
		return NewValidationError(resource, "%v", err)
	}
	verr := &ValidationError{Field: field, Message: msg}
	if fields := validation.FormatValidationErrors(err); len(fields) > 1 {
		verr.Fields = fields
	}
	return verr
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports an operation that clashes with existing state
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrDuplicate }

// NotFoundError reports an unknown id
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DependencyError wraps a failure of an external collaborator such as the
// summarization service. Review and course data are untouched when it occurs.
type DependencyError struct {
	Dependency string
	Timeout    bool
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s timed out: %v", e.Dependency, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is, or wraps, a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflictError reports whether err is, or wraps, a ConflictError
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFoundError reports whether err is, or wraps, a NotFoundError or ErrNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDependencyError reports whether err is, or wraps, a DependencyError
func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
