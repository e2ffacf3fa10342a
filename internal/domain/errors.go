package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrStoreUnavailable     = errors.New("store unavailable")

	// ErrDateUnavailable is returned for a public submission on a past or full day.
	ErrDateUnavailable = errors.New("date unavailable")

	// ErrTransitionNotAllowed is only produced by a strict TransitionMatrix.
	// Refusals also match ErrInvalidInput.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

// Invalid returns an error that matches ErrInvalidInput and carries a reason.
func Invalid(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidInput)
}

// Unavailable marks a failed store call so callers can match ErrStoreUnavailable.
func Unavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrStoreUnavailable)
}
