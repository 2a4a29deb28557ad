package domain

import (
	"errors"
	"fmt"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUnitNotFound        = errors.New("inventory unit not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrSlotConflict        = errors.New("time slot already booked")
	ErrNotBookable         = errors.New("unit has no price for this duration")
	ErrWaiverRequired      = errors.New("a signed waiver is required")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrItemNotFound        = errors.New("reservation item not found")
	ErrAlreadyCheckedOut   = errors.New("item already checked out")
	ErrAlreadyCheckedIn    = errors.New("item already checked in")
	ErrNotCheckedOut       = errors.New("item not checked out yet")

	ErrValidationFailed = errors.New("validation failed")

	ErrUnknownPolicy     = errors.New("unknown duration policy")
	ErrStartTimeRequired = errors.New("start time is required for hourly bookings")
	ErrEndDateRequired   = errors.New("end date is required for multi-day bookings")
	ErrEndBeforeStart    = errors.New("end date must not precede start date")
	ErrNoUnitsRequested  = errors.New("at least one unit is required")
	ErrInvalidExtension  = errors.New("new end must be after the current end")
)

// InvalidStateError reports an action attempted from a status that does not
// permit it. The current status is included so callers can react.
type InvalidStateError struct {
	Action string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a reservation in status %q", e.Action, e.Status)
}

// NewInvalidState builds an InvalidStateError for the given action and status.
func NewInvalidState(action string, status Status) error {
	return &InvalidStateError{Action: action, Status: status}
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}

// DependencyError reports a failure of an external collaborator (payment
// gateway, message broker). It is distinct from internal faults so callers can
// retry the collaborator step without re-creating the reservation.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// IsDependencyFailure reports whether err is a DependencyError.
func IsDependencyFailure(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
