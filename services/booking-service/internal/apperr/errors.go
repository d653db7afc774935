// Package apperr holds the error kinds every layer of the booking service
// reports. Stores and the engine wrap these sentinels with context; callers
// classify with errors.Is or Kind.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the referenced service or appointment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the slot is already taken, or the appointment is in a state
	// that forbids the operation.
	ErrConflict = errors.New("conflict")

	// ErrInvalidArgument: the caller sent something the engine cannot accept.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable: the store (or another dependency) failed. Not retried here.
	ErrUnavailable = errors.New("unavailable")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Unavailable classifies err as ErrUnavailable unless it already carries one
// of the other kinds. nil stays nil.
func Unavailable(err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Kind returns the sentinel err wraps, or nil when it carries none.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrInvalidArgument, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
