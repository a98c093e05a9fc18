package repository

import (
	"context"

	"github.com/safarhub/ride-booking/internal/domain"
)

// BookingRepository defines persistence operations for bookings
type BookingRepository interface {
	// Create inserts a new booking at version 1
	Create(ctx context.Context, booking *domain.Booking) error
	// GetByID retrieves a booking by its ID
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// GetByReferenceCode retrieves a booking by its human-facing code
	GetByReferenceCode(ctx context.Context, code string) (*domain.Booking, error)
	// Update saves a booking guarded by its version; it returns
	// domain.ErrVersionConflict when the row changed underneath the
	// caller, and bumps booking.Version on success.
	Update(ctx context.Context, booking *domain.Booking) error
}
