package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrInvalidState = errors.New("invalid appointment state")
	ErrConflict     = errors.New("appointment time conflict")
	ErrInvalidRange = errors.New("invalid date range")
	ErrValidation   = errors.New("validation error")
)

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("appointment %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidStateError reports a transition the state machine does not allow.
type InvalidStateError struct {
	ID     string
	From   Status
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s appointment %q in status %s", e.Action, e.ID, e.From)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// ConflictError names the existing appointment the requested interval overlaps.
type ConflictError struct {
	TailorID      string
	ConflictingID string
	Start         time.Time
	End           time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("tailor %q is already booked %s-%s by appointment %q",
		e.TailorID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.ConflictingID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("range start %s is after end %s", e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
