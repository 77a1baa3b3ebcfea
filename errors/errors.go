package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the research pipeline failure taxonomy
var (
	// ErrBackend indicates a reasoning or search backend was unreachable or returned an invalid response
	ErrBackend = errors.New("backend error")

	// ErrParse indicates backend output did not match the expected shape
	ErrParse = errors.New("parse error")

	// ErrValidation indicates a decoded plan, score or evidence value was malformed
	ErrValidation = errors.New("validation error")

	// ErrConfig indicates the process is not configured to run at all
	ErrConfig = errors.New("configuration error")
)

// Reason codes recorded in the run trace.
const (
	ReasonBackend    = "backend_error"
	ReasonParse      = "parse_error"
	ReasonValidation = "validation_error"
	ReasonCanceled   = "canceled"
	ReasonUnknown    = "error"
)

// BackendError wraps a failure reported by a named backend.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is reports ErrBackend as a match so callers can test the category.
func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// Backend wraps err as a BackendError unless it already is one.
func Backend(name, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Backend: name, Op: op, Err: err}
}

// Parse returns an ErrParse-wrapped error.
func Parse(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// Validation returns an ErrValidation-wrapped error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Config returns an ErrConfig-wrapped error.
func Config(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Reason maps an error to the trace reason code.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if errors.Is(err, ErrBackend) {
			return ReasonBackend
		}
		return ReasonCanceled
	case errors.Is(err, ErrParse):
		return ReasonParse
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	case errors.Is(err, ErrBackend):
		return ReasonBackend
	default:
		return ReasonUnknown
	}
}
