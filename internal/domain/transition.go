package domain

import "github.com/cockroachdb/errors"

// TransitionPolicy decides whether staff may move a booking between statuses.
type TransitionPolicy interface {
	Allow(from, to BookingStatus) error
}

// Permissive lets staff set any status from any status, so mistakes can be
// corrected by hand.
type Permissive struct{}

func (Permissive) Allow(from, to BookingStatus) error { return nil }

// TransitionMatrix lists the allowed target statuses per source status.
// Setting the current status again is always allowed.
type TransitionMatrix map[BookingStatus][]BookingStatus

// DefaultMatrix is the workflow used when strict transitions are enabled.
var DefaultMatrix = TransitionMatrix{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPending, StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusConfirmed},
	StatusCancelled: {StatusPending},
}

func (m TransitionMatrix) Allow(from, to BookingStatus) error {
	if from == to {
		return nil
	}
	for _, allowed := range m[from] {
		if allowed == to {
			return nil
		}
	}
	return errors.Mark(errors.Wrapf(ErrTransitionNotAllowed, "%s -> %s", from, to), ErrInvalidInput)
}
