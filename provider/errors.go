package provider

import (
	"fmt"

	"github.com/pkg/errors"
)

// A NotFoundError is returned from Read when no resource exists with the
// given physical id, and from Delete when the resource is already gone.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// A NotEmptyError is returned from Delete when the resource contains child
// data and the request did not set Force. Recoverable by setting the force
// flag or manually emptying the container.
type NotEmptyError struct {
	Kind string
	ID   string
}

func (e *NotEmptyError) Error() string {
	return fmt.Sprintf("%s %q is not empty", e.Kind, e.ID)
}

// An UnavailableError wraps a transient platform failure. Calls that return
// it are eligible for bounded retry with exponential backoff at the adapter
// boundary.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider unavailable: %v", e.Err)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// IsNotEmpty returns true if the error is a NotEmptyError.
func IsNotEmpty(err error) bool {
	_, ok := errors.Cause(err).(*NotEmptyError)
	return ok
}

// IsUnavailable returns true if the error is an UnavailableError.
func IsUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*UnavailableError)
	return ok
}
