package domain

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of the reservation itself
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusPaid      BookingStatus = "PAID"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// IsValid checks if the status is a valid BookingStatus
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusPaid, BookingStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of BookingStatus
func (s BookingStatus) String() string {
	return string(s)
}

// PaymentStatus is the payment sub-state of a booking
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentErrorMaxLen caps the stored payment diagnostic string
const PaymentErrorMaxLen = 160

// Booking is the unit of saga state. It is created by the orchestrator,
// mutated by the orchestrator on compensation, and independently by the
// payment event reactor; it is never deleted.
type Booking struct {
	ID            string        `json:"id"`
	ReferenceCode string        `json:"reference_code"`
	RideID        string        `json:"ride_id"`
	PassengerID   string        `json:"passenger_id"`
	HoldID        *string       `json:"hold_id,omitempty"`
	Seats         int           `json:"seats"`
	Amount        int64         `json:"amount"`
	Status        BookingStatus `json:"status"`

	PaymentStatus         PaymentStatus `json:"payment_status"`
	PaymentMethod         string        `json:"payment_method,omitempty"`
	PaymentProvider       string        `json:"payment_provider,omitempty"`
	PaymentMethodID       string        `json:"payment_method_id,omitempty"`
	PaymentError          string        `json:"payment_error,omitempty"`
	PaymentRefundedAmount int64         `json:"payment_refunded_amount"`

	// Version backs the optimistic-lock check on save
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates the fields required at creation time
func (b *Booking) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrInvalidBookingID
	}
	if strings.TrimSpace(b.RideID) == "" {
		return ErrInvalidRideID
	}
	if strings.TrimSpace(b.PassengerID) == "" {
		return ErrInvalidPassengerID
	}
	if b.Seats <= 0 {
		return ErrInvalidSeats
	}
	if b.Amount < 0 {
		return ErrInvalidAmount
	}
	if !b.Status.IsValid() {
		return ErrInvalidBookingStatus
	}
	return nil
}

// SetPaymentError stores a bounded diagnostic string
func (b *Booking) SetPaymentError(reason string) {
	b.PaymentError = TruncatePaymentError(reason)
}

// TruncatePaymentError bounds a diagnostic string to PaymentErrorMaxLen
func TruncatePaymentError(reason string) string {
	if len(reason) > PaymentErrorMaxLen {
		return reason[:PaymentErrorMaxLen]
	}
	return reason
}

// AddRefund accumulates a refunded amount; the total only ever grows.
func (b *Booking) AddRefund(amount int64) {
	if amount <= 0 {
		return
	}
	b.PaymentRefundedAmount += amount
}
