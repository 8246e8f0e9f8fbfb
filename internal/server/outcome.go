package server

import (
	direrrors "github.com/tf2director/tf2director/internal/errors"
)

// Outcome classifies the result of a lifecycle operation so callers can
// branch on run-state preconditions without matching error values.
type Outcome int

const (
	// OutcomeOK means the operation completed.
	OutcomeOK Outcome = iota
	// OutcomeAlreadyRunning means Start found a live session.
	OutcomeAlreadyRunning
	// OutcomeNotRunning means Stop or Attach found no session.
	OutcomeNotRunning
	// OutcomeRunning means Update refused to touch a live server.
	OutcomeRunning
	// OutcomeNoAddress means PrintStatus has no public IP to query.
	OutcomeNoAddress
	// OutcomeFailed is any other error.
	OutcomeFailed
)

// String returns a short label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAlreadyRunning:
		return "already running"
	case OutcomeNotRunning:
		return "not running"
	case OutcomeRunning:
		return "running"
	case OutcomeNoAddress:
		return "no address"
	default:
		return "failed"
	}
}

// Precondition reports whether the outcome is a run-state precondition
// rather than a real failure.
func (o Outcome) Precondition() bool {
	switch o {
	case OutcomeAlreadyRunning, OutcomeNotRunning, OutcomeRunning, OutcomeNoAddress:
		return true
	}
	return false
}

// OutcomeOf maps an error returned by a Server operation to its Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case direrrors.Is(err, direrrors.ErrAlreadyRunning):
		return OutcomeAlreadyRunning
	case direrrors.Is(err, direrrors.ErrNotRunning):
		return OutcomeNotRunning
	case direrrors.Is(err, direrrors.ErrRunning):
		return OutcomeRunning
	case direrrors.Is(err, direrrors.ErrNoAddress):
		return OutcomeNoAddress
	default:
		return OutcomeFailed
	}
}
