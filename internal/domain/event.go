package domain

import "time"

// Event topics. Events are keyed by bookingID (passengerID for
// booking.confirmed) so one consumer sees per-entity publish order.
const (
	TopicPaymentIntent    = "payment.intent"
	TopicPaymentCaptured  = "payment.captured"
	TopicPaymentFailed    = "payment.failed"
	TopicPaymentRefunded  = "payment.refunded"
	TopicBookingConfirmed = "booking.confirmed"
)

// PaymentIntentEvent asks the payment pipeline to capture a held amount
type PaymentIntentEvent struct {
	EventID       string    `json:"event_id"`
	BookingID     string    `json:"booking_id"`
	PassengerID   string    `json:"passenger_id"`
	RideID        string    `json:"ride_id"`
	ReferenceCode string    `json:"reference_code"`
	Amount        int64     `json:"amount"`
	HoldID        string    `json:"hold_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentCapturedEvent reports a successful capture
type PaymentCapturedEvent struct {
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	Method    string `json:"method"`
	Provider  string `json:"provider,omitempty"`
	MethodID  string `json:"method_id,omitempty"`
}

// PaymentFailedEvent reports a failed capture
type PaymentFailedEvent struct {
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason,omitempty"`
}

// PaymentRefundedEvent reports a (possibly partial) refund
type PaymentRefundedEvent struct {
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
}

// BookingConfirmedEvent notifies downstream consumers of a new booking
type BookingConfirmedEvent struct {
	EventID       string    `json:"event_id"`
	BookingID     string    `json:"booking_id"`
	PassengerID   string    `json:"passenger_id"`
	RideID        string    `json:"ride_id"`
	ReferenceCode string    `json:"reference_code"`
	Seats         int       `json:"seats"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}
