package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safarhub/ride-booking/internal/client"
	"github.com/safarhub/ride-booking/internal/domain"
	"github.com/safarhub/ride-booking/internal/dto"
	"github.com/safarhub/ride-booking/internal/metrics"
	"github.com/safarhub/ride-booking/internal/repository"
	"github.com/safarhub/ride-booking/pkg/logger"
	"github.com/safarhub/ride-booking/pkg/telemetry"
)

// saveAttempts bounds the re-read loop when a versioned save conflicts
const saveAttempts = 3

// RideService is the orchestrator's view of the ride service
type RideService interface {
	LockSeats(ctx context.Context, rideID string, seats int) error
	UnlockSeats(ctx context.Context, rideID string, seats int) error
	GetRide(ctx context.Context, rideID string) (*client.RideInfo, error)
}

// WalletService is the orchestrator's view of the wallet service
type WalletService interface {
	CreateHold(ctx context.Context, ownerID, referenceID string, amount int64) (string, error)
}

// OrchestratorConfig holds Orchestrator dependencies
type OrchestratorConfig struct {
	Rides    RideService
	Wallet   WalletService
	Repo     repository.BookingRepository
	Bus      EventBus
	Refs     *ReferenceGenerator
	Recorder metrics.Recorder
	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

// Orchestrator drives the booking-creation saga: lock seats, price, persist,
// wallet hold, publish payment intent, publish confirmation. Each committed
// step registers its inverse; when a later step fails the registered
// compensations run in reverse order and the caller gets a SagaError with a
// stable reason code.
type Orchestrator struct {
	rides    RideService
	wallet   WalletService
	repo     repository.BookingRepository
	bus      EventBus
	refs     *ReferenceGenerator
	recorder metrics.Recorder
	now      func() time.Time
}

// NewOrchestrator creates a booking saga orchestrator
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	refs := cfg.Refs
	if refs == nil {
		refs = NewReferenceGenerator(cfg.Repo)
	}
	return &Orchestrator{
		rides:    cfg.Rides,
		wallet:   cfg.Wallet,
		repo:     cfg.Repo,
		bus:      cfg.Bus,
		refs:     refs,
		recorder: recorder,
		now:      now,
	}
}

// CreateBooking runs the booking saga. On failure it returns a *SagaError
// whose Reason distinguishes which step failed; validation problems surface
// as plain domain errors before anything is committed.
func (o *Orchestrator) CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.booking.create")
	defer span.End()

	log := logger.Get()
	started := o.now()

	if err := validateCreate(req); err != nil {
		return nil, err
	}

	var undo compensations

	// Step 1: lock seats. Nothing is committed yet, so failure aborts the
	// saga without compensation.
	if err := o.rides.LockSeats(ctx, req.RideID, req.Seats); err != nil {
		return nil, o.fail(ctx, undo, Fail(ReasonSeatLock, KindClient, err))
	}
	undo = append(undo, compensation{name: "unlock-seats", undo: func(ctx context.Context, _ Result) {
		if err := o.rides.UnlockSeats(ctx, req.RideID, req.Seats); err != nil {
			log.Error("failed to unlock seats during compensation",
				zap.String("ride_id", req.RideID),
				zap.Int("seats", req.Seats),
				zap.Error(err))
		}
	}})

	// Step 2: price lookup. Non-fatal; a booking with amount 0 is better
	// than no booking.
	var amount int64
	if ride, err := o.rides.GetRide(ctx, req.RideID); err != nil {
		log.Warn("price lookup failed, creating booking with zero amount",
			zap.String("ride_id", req.RideID),
			zap.Error(err))
	} else {
		amount = ride.PricePerSeat * int64(req.Seats)
	}

	// Step 3: persist the booking
	booking, res := o.persistBooking(ctx, req, amount)
	if res.Failed() {
		return nil, o.fail(ctx, undo, res)
	}
	undo = append(undo, compensation{name: "cancel-booking", undo: func(ctx context.Context, failed Result) {
		o.cancelAfterFailure(ctx, booking.ID, failed.Reason)
	}})

	// Step 4: wallet hold
	holdID, err := o.wallet.CreateHold(ctx, req.PassengerID, booking.ID, booking.Amount)
	if err != nil {
		return nil, o.fail(ctx, undo, Fail(ReasonWalletHoldFailed, KindGateway, err))
	}
	booking, res = o.attachHold(ctx, booking, holdID)
	if res.Failed() {
		return nil, o.fail(ctx, undo, res)
	}

	// Step 5: publish the payment intent
	intent := &domain.PaymentIntentEvent{
		EventID:       uuid.New().String(),
		BookingID:     booking.ID,
		PassengerID:   booking.PassengerID,
		RideID:        booking.RideID,
		ReferenceCode: booking.ReferenceCode,
		Amount:        booking.Amount,
		HoldID:        holdID,
		CreatedAt:     o.now(),
	}
	if err := o.bus.PublishJSON(ctx, domain.TopicPaymentIntent, booking.ID, intent, nil); err != nil {
		return nil, o.fail(ctx, undo, Fail(ReasonPaymentIntentFailed, KindGateway, err))
	}

	// Step 6: best-effort confirmation event keyed by passenger
	confirmed := &domain.BookingConfirmedEvent{
		EventID:       uuid.New().String(),
		BookingID:     booking.ID,
		PassengerID:   booking.PassengerID,
		RideID:        booking.RideID,
		ReferenceCode: booking.ReferenceCode,
		Seats:         booking.Seats,
		Amount:        booking.Amount,
		CreatedAt:     o.now(),
	}
	if err := o.bus.PublishJSON(ctx, domain.TopicBookingConfirmed, booking.PassengerID, confirmed, nil); err != nil {
		log.Error("failed to publish booking confirmation",
			zap.String("booking_id", booking.ID),
			zap.Error(err))
	}

	o.recorder.BookingCreated(ctx)
	o.recorder.SagaDuration(ctx, o.now().Sub(started))
	log.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("reference_code", booking.ReferenceCode),
		zap.Int64("amount", booking.Amount))
	return booking, nil
}

// GetBooking loads a booking by id
func (o *Orchestrator) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return o.repo.GetByID(ctx, id)
}

// CancelBooking cancels a booking on behalf of its passenger. Cancelling an
// already-cancelled booking is a no-op. Seats are unlocked best-effort after
// the cancellation commits; an unlock failure never blocks the response.
func (o *Orchestrator) CancelBooking(ctx context.Context, id, passengerID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.booking.cancel")
	defer span.End()

	booking, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != passengerID {
		return nil, domain.ErrNotBookingOwner
	}
	if booking.Status == domain.BookingStatusCancelled {
		return booking, nil
	}

	booking, err = o.saveBooking(ctx, id, func(b *domain.Booking) {
		b.Status = domain.BookingStatusCancelled
	})
	if err != nil {
		return nil, err
	}

	if err := o.rides.UnlockSeats(ctx, booking.RideID, booking.Seats); err != nil {
		logger.Get().Error("failed to unlock seats after cancellation",
			zap.String("booking_id", booking.ID),
			zap.String("ride_id", booking.RideID),
			zap.Error(err))
	}

	o.recorder.BookingCancelled(ctx)
	return booking, nil
}

// persistBooking generates a reference code and creates the booking row
func (o *Orchestrator) persistBooking(ctx context.Context, req *dto.CreateBookingRequest, amount int64) (*domain.Booking, Result) {
	code, err := o.refs.Generate(ctx)
	if err != nil {
		return nil, Fail(ReasonPersistFailed, KindServer, err)
	}

	now := o.now()
	booking := &domain.Booking{
		ID:            uuid.New().String(),
		ReferenceCode: code,
		RideID:        req.RideID,
		PassengerID:   req.PassengerID,
		Seats:         req.Seats,
		Amount:        amount,
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.repo.Create(ctx, booking); err != nil {
		return nil, Fail(ReasonPersistFailed, KindServer, err)
	}
	return booking, Ok()
}

// attachHold records the wallet hold reference on the booking. A failure
// here is treated like a hold failure so the booking does not confirm while
// referencing no hold.
func (o *Orchestrator) attachHold(ctx context.Context, booking *domain.Booking, holdID string) (*domain.Booking, Result) {
	updated, err := o.saveBooking(ctx, booking.ID, func(b *domain.Booking) {
		b.HoldID = &holdID
	})
	if err != nil {
		return booking, Fail(ReasonWalletHoldFailed, KindGateway, err)
	}
	return updated, Ok()
}

// cancelAfterFailure moves a persisted booking to its terminal failed state.
// Errors here are logged only; escalating a compensation failure would just
// cascade the outage.
func (o *Orchestrator) cancelAfterFailure(ctx context.Context, bookingID, reason string) {
	_, err := o.saveBooking(ctx, bookingID, func(b *domain.Booking) {
		b.Status = domain.BookingStatusCancelled
		b.PaymentStatus = domain.PaymentStatusFailed
		b.SetPaymentError(reason)
	})
	if err != nil {
		logger.Get().Error("failed to cancel booking during compensation",
			zap.String("booking_id", bookingID),
			zap.String("reason", reason),
			zap.Error(err))
	}
}

// fail runs the compensation table in reverse order and returns the
// SagaError for the failed step
func (o *Orchestrator) fail(ctx context.Context, undo compensations, failed Result) error {
	undo.run(ctx, failed)
	o.recorder.SagaFailed(ctx, failed.Reason)
	return &SagaError{Reason: failed.Reason, Kind: failed.Kind, Err: failed.Err}
}

// saveBooking applies a mutation under the optimistic lock. On a version
// conflict it re-reads the row and re-applies the mutation, so a concurrent
// writer's fields survive alongside this one's.
func (o *Orchestrator) saveBooking(ctx context.Context, id string, apply func(*domain.Booking)) (*domain.Booking, error) {
	var lastErr error
	for i := 0; i < saveAttempts; i++ {
		booking, err := o.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		apply(booking)
		booking.UpdatedAt = o.now()

		err = o.repo.Update(ctx, booking)
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

func validateCreate(req *dto.CreateBookingRequest) error {
	if req == nil || req.RideID == "" {
		return domain.ErrInvalidRideID
	}
	if req.PassengerID == "" {
		return domain.ErrInvalidPassengerID
	}
	if req.Seats <= 0 {
		return domain.ErrInvalidSeats
	}
	return nil
}
