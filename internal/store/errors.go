package store

import (
	"errors"
	"fmt"
)

// ValidationError rejects input before any backend call is made
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// BackendError wraps a failed call to the backend
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// FetchError is a failed list read. The section it was loading should be
// left unrendered.
type FetchError struct {
	Section string
	Err     error
}

func (e *FetchError) Error() string {
	return "fetch " + e.Section + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func backendErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

func fetchErr(section string, err error) error {
	return &FetchError{Section: section, Err: backendErr("list "+section, err)}
}

// IsValidation reports whether err was caused by rejected input
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
