package domain

import "errors"

// Domain errors
var (
	// Booking errors
	ErrBookingNotFound      = errors.New("booking not found")
	ErrInvalidBookingStatus = errors.New("invalid booking status")
	ErrVersionConflict      = errors.New("booking was modified concurrently")
	ErrReferenceCodeTaken   = errors.New("reference code already in use")

	// Validation errors
	ErrInvalidBookingID   = errors.New("invalid booking id")
	ErrInvalidRideID      = errors.New("invalid ride id")
	ErrInvalidPassengerID = errors.New("invalid passenger id")
	ErrInvalidSeats       = errors.New("seats must be greater than zero")
	ErrInvalidAmount      = errors.New("amount cannot be negative")

	// Ownership errors
	ErrNotBookingOwner = errors.New("booking does not belong to this passenger")

	// Payment errors
	ErrInvalidPaymentMethod   = errors.New("unknown payment method type")
	ErrInvalidPaymentProvider = errors.New("provider not allowed for payment method")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrBookingNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidBookingID) ||
		errors.Is(err, ErrInvalidRideID) ||
		errors.Is(err, ErrInvalidPassengerID) ||
		errors.Is(err, ErrInvalidSeats) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidBookingStatus)
}

// IsConflictError checks if the error is a concurrency or uniqueness conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrReferenceCodeTaken)
}
