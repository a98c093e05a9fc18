package saga

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/safarhub/ride-booking/internal/client"
	"github.com/safarhub/ride-booking/internal/domain"
	"github.com/safarhub/ride-booking/internal/dto"
)

func newTestOrchestrator(repo *memRepo, rides *MockRideService, wallet *MockWalletService, bus *MockEventBus) *Orchestrator {
	return NewOrchestrator(&OrchestratorConfig{
		Rides:  rides,
		Wallet: wallet,
		Repo:   repo,
		Bus:    bus,
	})
}

func createReq() *dto.CreateBookingRequest {
	return &dto.CreateBookingRequest{RideID: "R1", PassengerID: "P1", Seats: 2}
}

func TestCreateBookingSuccess(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{}
	wallet := &MockWalletService{}
	bus := &MockEventBus{}
	o := newTestOrchestrator(repo, rides, wallet, bus)

	booking, err := o.CreateBooking(context.Background(), createReq())
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", booking.Status)
	}
	if booking.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("paymentStatus = %s, want PENDING", booking.PaymentStatus)
	}
	if !regexp.MustCompile(`^\d{8}$`).MatchString(booking.ReferenceCode) {
		t.Errorf("reference code %q is not 8 digits", booking.ReferenceCode)
	}
	if booking.Amount != 2000 {
		t.Errorf("amount = %d, want 2000 (1000 per seat x 2)", booking.Amount)
	}
	if booking.HoldID == nil || *booking.HoldID != "hold-1" {
		t.Errorf("holdID = %v, want hold-1", booking.HoldID)
	}

	if len(wallet.HoldCalls) != 1 || wallet.HoldCalls[0] != 2000 {
		t.Errorf("hold calls = %v, want one call for 2000", wallet.HoldCalls)
	}

	intents := bus.byTopic(domain.TopicPaymentIntent)
	if len(intents) != 1 {
		t.Fatalf("payment.intent publishes = %d, want 1", len(intents))
	}
	intent := intents[0].Data.(*domain.PaymentIntentEvent)
	if intent.Amount != 2000 || intent.HoldID != "hold-1" {
		t.Errorf("intent amount=%d holdID=%s, want 2000/hold-1", intent.Amount, intent.HoldID)
	}
	if intents[0].Key != booking.ID {
		t.Errorf("intent key = %s, want booking id %s", intents[0].Key, booking.ID)
	}

	confirmed := bus.byTopic(domain.TopicBookingConfirmed)
	if len(confirmed) != 1 || confirmed[0].Key != "P1" {
		t.Errorf("booking.confirmed publishes = %v, want one keyed by P1", confirmed)
	}

	if len(rides.UnlockCalls) != 0 {
		t.Errorf("unexpected unlock calls on success: %v", rides.UnlockCalls)
	}
}

func TestCreateBookingSeatLockFails(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{
		LockSeatsFunc: func(ctx context.Context, rideID string, seats int) error {
			return errors.New("not enough seats")
		},
	}
	o := newTestOrchestrator(repo, rides, &MockWalletService{}, &MockEventBus{})

	_, err := o.CreateBooking(context.Background(), createReq())
	se, ok := AsSagaError(err)
	if !ok {
		t.Fatalf("error %v is not a SagaError", err)
	}
	if se.Reason != ReasonSeatLock || se.Kind != KindClient {
		t.Errorf("reason=%s kind=%s, want seat_lock/client", se.Reason, se.Kind)
	}
	if len(repo.bookings) != 0 {
		t.Error("no booking should be persisted when seat lock fails")
	}
	if len(rides.UnlockCalls) != 0 {
		t.Errorf("no compensation expected, got unlock calls %v", rides.UnlockCalls)
	}
}

func TestCreateBookingPriceLookupFailureIsNonFatal(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{
		GetRideFunc: func(ctx context.Context, rideID string) (*client.RideInfo, error) {
			return nil, errors.New("ride service timeout")
		},
	}
	wallet := &MockWalletService{}
	o := newTestOrchestrator(repo, rides, wallet, &MockEventBus{})

	booking, err := o.CreateBooking(context.Background(), createReq())
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if booking.Amount != 0 {
		t.Errorf("amount = %d, want 0 when price lookup fails", booking.Amount)
	}
	if len(wallet.HoldCalls) != 1 || wallet.HoldCalls[0] != 0 {
		t.Errorf("hold calls = %v, want one call for 0", wallet.HoldCalls)
	}
}

func TestCreateBookingPersistFailureUnlocksSeats(t *testing.T) {
	repo := newMemRepo()
	repo.CreateErr = errors.New("db down")
	rides := &MockRideService{}
	o := newTestOrchestrator(repo, rides, &MockWalletService{}, &MockEventBus{})

	_, err := o.CreateBooking(context.Background(), createReq())
	se, ok := AsSagaError(err)
	if !ok {
		t.Fatalf("error %v is not a SagaError", err)
	}
	if se.Reason != ReasonPersistFailed || se.Kind != KindServer {
		t.Errorf("reason=%s kind=%s, want persist_failed/server", se.Reason, se.Kind)
	}
	if len(rides.UnlockCalls) != 1 || rides.UnlockCalls[0] != 2 {
		t.Errorf("unlock calls = %v, want one call for 2 seats", rides.UnlockCalls)
	}
}

func TestCreateBookingWalletHoldFailure(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{}
	wallet := &MockWalletService{
		CreateHoldFunc: func(ctx context.Context, ownerID, referenceID string, amount int64) (string, error) {
			return "", errors.New("wallet unavailable")
		},
	}
	bus := &MockEventBus{}
	o := newTestOrchestrator(repo, rides, wallet, bus)

	_, err := o.CreateBooking(context.Background(), createReq())
	se, ok := AsSagaError(err)
	if !ok {
		t.Fatalf("error %v is not a SagaError", err)
	}
	if se.Reason != ReasonWalletHoldFailed || se.Kind != KindGateway {
		t.Errorf("reason=%s kind=%s, want wallet_hold_failed/gateway", se.Reason, se.Kind)
	}

	// The booking stays behind in its terminal failed state
	var stored *domain.Booking
	for _, b := range repo.bookings {
		stored = b
	}
	if stored == nil {
		t.Fatal("booking should still exist after compensation")
	}
	if stored.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", stored.Status)
	}
	if stored.PaymentStatus != domain.PaymentStatusFailed {
		t.Errorf("paymentStatus = %s, want FAILED", stored.PaymentStatus)
	}
	if stored.PaymentError != "wallet_hold_failed" {
		t.Errorf("paymentError = %q, want wallet_hold_failed", stored.PaymentError)
	}

	if len(rides.UnlockCalls) != 1 || rides.UnlockCalls[0] != 2 {
		t.Errorf("unlock calls = %v, want one call for 2 seats", rides.UnlockCalls)
	}
	if len(bus.byTopic(domain.TopicPaymentIntent)) != 0 {
		t.Error("no payment intent should be published after hold failure")
	}
}

func TestCreateBookingPaymentIntentPublishFailure(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{}
	bus := &MockEventBus{
		PublishJSONFunc: func(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error {
			if topic == domain.TopicPaymentIntent {
				return errors.New("broker unreachable")
			}
			return nil
		},
	}
	o := newTestOrchestrator(repo, rides, &MockWalletService{}, bus)

	_, err := o.CreateBooking(context.Background(), createReq())
	se, ok := AsSagaError(err)
	if !ok {
		t.Fatalf("error %v is not a SagaError", err)
	}
	if se.Reason != ReasonPaymentIntentFailed || se.Kind != KindGateway {
		t.Errorf("reason=%s kind=%s, want payment_intent_failed/gateway", se.Reason, se.Kind)
	}

	var stored *domain.Booking
	for _, b := range repo.bookings {
		stored = b
	}
	if stored == nil || stored.Status != domain.BookingStatusCancelled {
		t.Fatalf("booking should be cancelled, got %+v", stored)
	}
	if stored.PaymentError != "payment_intent_failed" {
		t.Errorf("paymentError = %q, want payment_intent_failed", stored.PaymentError)
	}
	if len(rides.UnlockCalls) != 1 {
		t.Errorf("unlock calls = %v, want exactly one", rides.UnlockCalls)
	}
}

func TestCreateBookingConfirmationPublishFailureIsNonFatal(t *testing.T) {
	repo := newMemRepo()
	bus := &MockEventBus{
		PublishJSONFunc: func(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error {
			if topic == domain.TopicBookingConfirmed {
				return errors.New("broker hiccup")
			}
			return nil
		},
	}
	o := newTestOrchestrator(repo, &MockRideService{}, &MockWalletService{}, bus)

	booking, err := o.CreateBooking(context.Background(), createReq())
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", booking.Status)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	o := newTestOrchestrator(newMemRepo(), &MockRideService{}, &MockWalletService{}, &MockEventBus{})

	_, err := o.CreateBooking(context.Background(), &dto.CreateBookingRequest{RideID: "R1", PassengerID: "P1", Seats: 0})
	if !errors.Is(err, domain.ErrInvalidSeats) {
		t.Errorf("error = %v, want ErrInvalidSeats", err)
	}
	if _, ok := AsSagaError(err); ok {
		t.Error("validation failures should not be saga errors")
	}
}

func TestCreateBookingSaveRetriesOnVersionConflict(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{}
	o := newTestOrchestrator(repo, rides, &MockWalletService{}, &MockEventBus{})

	// The hold-id save hits one stale read before succeeding
	repo.failUpdates = 1

	booking, err := o.CreateBooking(context.Background(), createReq())
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if booking.HoldID == nil {
		t.Error("holdID should be attached after conflict retry")
	}
}

func TestCancelBooking(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{}
	o := newTestOrchestrator(repo, rides, &MockWalletService{}, &MockEventBus{})

	booking, err := o.CreateBooking(context.Background(), createReq())
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	cancelled, err := o.CancelBooking(context.Background(), booking.ID, "P1")
	if err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if len(rides.UnlockCalls) != 1 || rides.UnlockCalls[0] != 2 {
		t.Errorf("unlock calls = %v, want one call for 2 seats", rides.UnlockCalls)
	}
}

func TestCancelBookingOwnershipMismatch(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, &MockRideService{}, &MockWalletService{}, &MockEventBus{})

	booking, _ := o.CreateBooking(context.Background(), createReq())

	_, err := o.CancelBooking(context.Background(), booking.ID, "P2")
	if !errors.Is(err, domain.ErrNotBookingOwner) {
		t.Errorf("error = %v, want ErrNotBookingOwner", err)
	}
}

func TestCancelBookingAlreadyCancelledIsNoOp(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{}
	o := newTestOrchestrator(repo, rides, &MockWalletService{}, &MockEventBus{})

	booking, _ := o.CreateBooking(context.Background(), createReq())
	if _, err := o.CancelBooking(context.Background(), booking.ID, "P1"); err != nil {
		t.Fatalf("first CancelBooking() error = %v", err)
	}
	if _, err := o.CancelBooking(context.Background(), booking.ID, "P1"); err != nil {
		t.Fatalf("second CancelBooking() error = %v", err)
	}

	if len(rides.UnlockCalls) != 1 {
		t.Errorf("unlock calls = %v, want exactly one (no re-unlock on no-op)", rides.UnlockCalls)
	}
}

func TestCancelBookingUnlockFailureDoesNotBlock(t *testing.T) {
	repo := newMemRepo()
	rides := &MockRideService{
		UnlockSeatsFunc: func(ctx context.Context, rideID string, seats int) error {
			return errors.New("ride service down")
		},
	}
	o := newTestOrchestrator(repo, rides, &MockWalletService{}, &MockEventBus{})

	booking, _ := o.CreateBooking(context.Background(), createReq())
	cancelled, err := o.CancelBooking(context.Background(), booking.ID, "P1")
	if err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want CANCELLED despite unlock failure", cancelled.Status)
	}
}
