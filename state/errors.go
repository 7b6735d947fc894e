package state

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when attempting to get or delete a record that does
// not exist.
var ErrNotFound = errors.New("not found")

// A VersionError is returned when a stored record was written with a format
// version this build does not understand. The record is left untouched; it
// must be migrated, never silently misread.
type VersionError struct {
	// Key is the storage key of the offending record.
	Key string

	// Got is the version found in the stored envelope.
	Got int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: unsupported state version %d (supported: %d)", e.Key, e.Got, Version)
}
