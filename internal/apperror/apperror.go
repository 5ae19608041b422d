package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("Validation Error")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrSystemFault         = errors.New("system fault")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure (spawn error, I/O error)
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches either
// ErrSystemFault or the underlying *exec.Error / fs.ErrNotExist.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// UnsupportedLanguage is returned before any workspace is allocated.
// HTTP handlers map this to 400 Bad Request.
func UnsupportedLanguage(language string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedLanguage,
		Message: fmt.Sprintf("Unsupported language: %q", language),
		Field:   "language",
	}
}

// SystemFault reports an out-of-band failure of the engine itself: a
// toolchain that could not be spawned, or a workspace that could not be
// written. It is never folded into an execution result.
func SystemFault(stage string, cause error) *AppError {
	return &AppError{
		Err:     ErrSystemFault,
		Message: fmt.Sprintf("%s failed", stage),
		Cause:   cause,
	}
}
