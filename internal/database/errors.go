package database

import "errors"

// Validation errors: the request itself is not eligible. Never retried.
var (
	ErrPastDate           = errors.New("booking date is in the past")
	ErrHoliday            = errors.New("booking date is a holiday")
	ErrNotWorkingDay      = errors.New("booking date is outside working days")
	ErrUnknownSlot        = errors.New("requested time is not a schedulable slot")
	ErrVehicleUnavailable = errors.New("vehicle is not available for test drives")
	ErrServiceInactive    = errors.New("service type is inactive or unknown")
	ErrNotFound           = errors.New("record not found")
)

// Conflict errors: capacity is exhausted or the record moved underneath
// the caller. The caller re-queries and picks another slot; the same
// request is not blindly retried.
var (
	ErrSlotConflict           = errors.New("slot capacity exhausted")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrInvalidTransition      = errors.New("booking status transition not allowed")
)

// IsValidationError reports whether the error is a request-eligibility
// failure rather than a scheduling conflict or store failure.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrPastDate, ErrHoliday, ErrNotWorkingDay, ErrUnknownSlot,
		ErrVehicleUnavailable, ErrServiceInactive, ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// IsConflictError reports whether the error means "choose another slot
// or reload and retry".
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSlotConflict) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrInvalidTransition)
}
