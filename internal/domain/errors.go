package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
)

// InvalidTransitionError reports a lifecycle transition that is not legal
// from the application's current status.
type InvalidTransitionError struct {
	Transition Transition
	Current    Status
	Detail     string
}

func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("invalid transition %q from status %s", e.Transition, e.Current)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func invalidTransition(t Transition, current Status, detail string) error {
	return &InvalidTransitionError{Transition: t, Current: current, Detail: detail}
}
