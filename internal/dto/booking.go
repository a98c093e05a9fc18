package dto

import (
	"time"

	"github.com/safarhub/ride-booking/internal/domain"
)

// CreateBookingRequest represents request to create a booking
type CreateBookingRequest struct {
	RideID      string `json:"ride_id" binding:"required"`
	PassengerID string `json:"passenger_id" binding:"required"`
	Seats       int    `json:"seats" binding:"required,min=1,max=10"`
}

// CancelBookingRequest represents request to cancel a booking
type CancelBookingRequest struct {
	PassengerID string `json:"passenger_id" binding:"required"`
}

// BookingResponse represents a booking in API response
type BookingResponse struct {
	ID                    string    `json:"id"`
	ReferenceCode         string    `json:"reference_code"`
	RideID                string    `json:"ride_id"`
	PassengerID           string    `json:"passenger_id"`
	HoldID                *string   `json:"hold_id,omitempty"`
	Seats                 int       `json:"seats"`
	Amount                int64     `json:"amount"`
	Status                string    `json:"status"`
	PaymentStatus         string    `json:"payment_status"`
	PaymentMethod         string    `json:"payment_method,omitempty"`
	PaymentProvider       string    `json:"payment_provider,omitempty"`
	PaymentError          string    `json:"payment_error,omitempty"`
	PaymentRefundedAmount int64     `json:"payment_refunded_amount"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// FromDomain converts domain Booking to BookingResponse
func FromDomain(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:                    b.ID,
		ReferenceCode:         b.ReferenceCode,
		RideID:                b.RideID,
		PassengerID:           b.PassengerID,
		HoldID:                b.HoldID,
		Seats:                 b.Seats,
		Amount:                b.Amount,
		Status:                b.Status.String(),
		PaymentStatus:         b.PaymentStatus.String(),
		PaymentMethod:         b.PaymentMethod,
		PaymentProvider:       b.PaymentProvider,
		PaymentError:          b.PaymentError,
		PaymentRefundedAmount: b.PaymentRefundedAmount,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
}
