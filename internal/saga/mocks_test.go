package saga

import (
	"context"
	"sync"

	"github.com/safarhub/ride-booking/internal/client"
	"github.com/safarhub/ride-booking/internal/domain"
)

// memRepo is an in-memory BookingRepository with the same versioned-save
// semantics as the postgres implementation
type memRepo struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking

	CreateErr error
	UpdateErr error
	// failUpdates makes the next N updates fail with ErrVersionConflict
	failUpdates int
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[string]*domain.Booking)}
}

func (r *memRepo) Create(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	for _, b := range r.bookings {
		if b.ReferenceCode == booking.ReferenceCode {
			return domain.ErrReferenceCodeTaken
		}
	}
	booking.Version = 1
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) GetByReferenceCode(ctx context.Context, code string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ReferenceCode == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (r *memRepo) Update(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if r.failUpdates > 0 {
		r.failUpdates--
		return domain.ErrVersionConflict
	}
	stored, ok := r.bookings[booking.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if stored.Version != booking.Version {
		return domain.ErrVersionConflict
	}
	booking.Version++
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *memRepo) get(id string) *domain.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookings[id]
}

// MockRideService is a func-field mock of RideService
type MockRideService struct {
	LockSeatsFunc   func(ctx context.Context, rideID string, seats int) error
	UnlockSeatsFunc func(ctx context.Context, rideID string, seats int) error
	GetRideFunc     func(ctx context.Context, rideID string) (*client.RideInfo, error)

	mu          sync.Mutex
	LockCalls   []int
	UnlockCalls []int
}

func (m *MockRideService) LockSeats(ctx context.Context, rideID string, seats int) error {
	m.mu.Lock()
	m.LockCalls = append(m.LockCalls, seats)
	m.mu.Unlock()
	if m.LockSeatsFunc != nil {
		return m.LockSeatsFunc(ctx, rideID, seats)
	}
	return nil
}

func (m *MockRideService) UnlockSeats(ctx context.Context, rideID string, seats int) error {
	m.mu.Lock()
	m.UnlockCalls = append(m.UnlockCalls, seats)
	m.mu.Unlock()
	if m.UnlockSeatsFunc != nil {
		return m.UnlockSeatsFunc(ctx, rideID, seats)
	}
	return nil
}

func (m *MockRideService) GetRide(ctx context.Context, rideID string) (*client.RideInfo, error) {
	if m.GetRideFunc != nil {
		return m.GetRideFunc(ctx, rideID)
	}
	return &client.RideInfo{ID: rideID, PricePerSeat: 1000}, nil
}

// MockWalletService is a func-field mock of WalletService
type MockWalletService struct {
	CreateHoldFunc func(ctx context.Context, ownerID, referenceID string, amount int64) (string, error)

	mu        sync.Mutex
	HoldCalls []int64
}

func (m *MockWalletService) CreateHold(ctx context.Context, ownerID, referenceID string, amount int64) (string, error) {
	m.mu.Lock()
	m.HoldCalls = append(m.HoldCalls, amount)
	m.mu.Unlock()
	if m.CreateHoldFunc != nil {
		return m.CreateHoldFunc(ctx, ownerID, referenceID, amount)
	}
	return "hold-1", nil
}

// publishedEvent captures one EventBus publish
type publishedEvent struct {
	Topic string
	Key   string
	Data  interface{}
}

// MockEventBus is a func-field mock of EventBus that records publishes
type MockEventBus struct {
	PublishJSONFunc func(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error

	mu        sync.Mutex
	Published []publishedEvent
}

func (m *MockEventBus) PublishJSON(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error {
	if m.PublishJSONFunc != nil {
		if err := m.PublishJSONFunc(ctx, topic, key, data, headers); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Published = append(m.Published, publishedEvent{Topic: topic, Key: key, Data: data})
	m.mu.Unlock()
	return nil
}

func (m *MockEventBus) byTopic(topic string) []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedEvent
	for _, e := range m.Published {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
