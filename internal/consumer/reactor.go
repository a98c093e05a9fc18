package consumer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/safarhub/ride-booking/internal/domain"
	"github.com/safarhub/ride-booking/internal/metrics"
	"github.com/safarhub/ride-booking/internal/repository"
	"github.com/safarhub/ride-booking/pkg/logger"
)

// defaultFailureReason is stored when a payment.failed event carries no reason
const defaultFailureReason = "payment_failed"

// saveAttempts bounds the re-read loop when a versioned save conflicts
const saveAttempts = 3

// SeatUnlocker returns locked seats to a ride
type SeatUnlocker interface {
	UnlockSeats(ctx context.Context, rideID string, seats int) error
}

// ReactorConfig holds Reactor dependencies
type ReactorConfig struct {
	Repo     repository.BookingRepository
	Rides    SeatUnlocker
	Recorder metrics.Recorder
}

// Reactor applies payment outcomes to bookings. Every handler re-reads the
// booking before writing and short-circuits on terminal states, so replaying
// a delivery cannot double-apply a side effect. Events for bookings that no
// longer exist are dropped silently; the event may be stale or misrouted.
type Reactor struct {
	repo     repository.BookingRepository
	rides    SeatUnlocker
	recorder metrics.Recorder
}

// NewReactor creates a payment event reactor
func NewReactor(cfg *ReactorConfig) *Reactor {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Reactor{repo: cfg.Repo, rides: cfg.Rides, recorder: recorder}
}

// HandlePaymentCaptured confirms a booking's payment. Events with an unknown
// method type, or a provider outside the method's allowed set, are logged
// and dropped rather than retried; they will never become valid.
func (r *Reactor) HandlePaymentCaptured(ctx context.Context, evt *domain.PaymentCapturedEvent) error {
	log := logger.Get()

	method := domain.PaymentMethodType(evt.Method)
	if err := domain.ValidatePaymentMethod(method, evt.Provider); err != nil {
		log.Warn("dropping payment.captured with invalid method",
			zap.String("booking_id", evt.BookingID),
			zap.String("method", evt.Method),
			zap.String("provider", evt.Provider),
			zap.Error(err))
		r.recorder.PaymentEventDropped(ctx, domain.TopicPaymentCaptured, "invalid_method")
		return nil
	}

	booking, err := r.repo.GetByID(ctx, evt.BookingID)
	if err != nil {
		return r.dropIfMissing(ctx, domain.TopicPaymentCaptured, evt.BookingID, err)
	}
	if booking.Status == domain.BookingStatusPaid && booking.PaymentStatus == domain.PaymentStatusConfirmed {
		return nil
	}

	_, err = r.saveBooking(ctx, evt.BookingID, func(b *domain.Booking) {
		b.Status = domain.BookingStatusPaid
		b.PaymentStatus = domain.PaymentStatusConfirmed
		b.PaymentError = ""
		b.PaymentMethod = evt.Method
		b.PaymentProvider = evt.Provider
		b.PaymentMethodID = evt.MethodID
	})
	if err != nil {
		return err
	}

	r.recorder.PaymentEventProcessed(ctx, domain.TopicPaymentCaptured)
	log.Info("payment captured",
		zap.String("booking_id", evt.BookingID),
		zap.String("method", evt.Method))
	return nil
}

// HandlePaymentFailed cancels the booking unless it already is cancelled, in
// which case only the payment fields are updated and seats are not unlocked
// a second time.
func (r *Reactor) HandlePaymentFailed(ctx context.Context, evt *domain.PaymentFailedEvent) error {
	booking, err := r.repo.GetByID(ctx, evt.BookingID)
	if err != nil {
		return r.dropIfMissing(ctx, domain.TopicPaymentFailed, evt.BookingID, err)
	}

	reason := evt.Reason
	if reason == "" {
		reason = defaultFailureReason
	}

	wasCancelled := booking.Status == domain.BookingStatusCancelled
	booking, err = r.saveBooking(ctx, evt.BookingID, func(b *domain.Booking) {
		b.Status = domain.BookingStatusCancelled
		b.PaymentStatus = domain.PaymentStatusFailed
		b.SetPaymentError(reason)
	})
	if err != nil {
		return err
	}

	if !wasCancelled {
		if err := r.rides.UnlockSeats(ctx, booking.RideID, booking.Seats); err != nil {
			logger.Get().Error("failed to unlock seats after payment failure",
				zap.String("booking_id", booking.ID),
				zap.String("ride_id", booking.RideID),
				zap.Error(err))
		}
	}

	r.recorder.PaymentEventProcessed(ctx, domain.TopicPaymentFailed)
	return nil
}

// HandlePaymentRefunded accumulates the refunded amount; repeated refunds
// add up, they never overwrite.
func (r *Reactor) HandlePaymentRefunded(ctx context.Context, evt *domain.PaymentRefundedEvent) error {
	if _, err := r.repo.GetByID(ctx, evt.BookingID); err != nil {
		return r.dropIfMissing(ctx, domain.TopicPaymentRefunded, evt.BookingID, err)
	}

	_, err := r.saveBooking(ctx, evt.BookingID, func(b *domain.Booking) {
		b.PaymentStatus = domain.PaymentStatusRefunded
		b.AddRefund(evt.Amount)
	})
	if err != nil {
		return err
	}

	r.recorder.PaymentEventProcessed(ctx, domain.TopicPaymentRefunded)
	return nil
}

// dropIfMissing swallows events for bookings that do not exist
func (r *Reactor) dropIfMissing(ctx context.Context, topic, bookingID string, err error) error {
	if domain.IsNotFoundError(err) {
		logger.Get().Warn("dropping event for unknown booking",
			zap.String("topic", topic),
			zap.String("booking_id", bookingID))
		r.recorder.PaymentEventDropped(ctx, topic, "booking_not_found")
		return nil
	}
	return err
}

// saveBooking applies a mutation under the optimistic lock, re-reading and
// re-applying on version conflicts
func (r *Reactor) saveBooking(ctx context.Context, id string, apply func(*domain.Booking)) (*domain.Booking, error) {
	var lastErr error
	for i := 0; i < saveAttempts; i++ {
		booking, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		apply(booking)
		booking.UpdatedAt = time.Now()

		err = r.repo.Update(ctx, booking)
		if err == nil {
			return booking, nil
		}
		if !domain.IsConflictError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("gave up saving booking %s after %d conflicts: %w", id, saveAttempts, lastErr)
}
