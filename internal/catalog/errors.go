package catalog

import (
	"errors"
)

var ErrNotFound = errors.New("Book not found")

// ValidationError marks a request the caller has to fix. Err is shown to
// the client, as field errors when it holds validation.Errors.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) error {
	return &ValidationError{Err: err}
}
