package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/safarhub/ride-booking/internal/domain"
	"github.com/safarhub/ride-booking/pkg/telemetry"
)

// PostgresBookingRepository implements BookingRepository using PostgreSQL with pgxpool
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

const bookingColumns = `
	id, reference_code, ride_id, passenger_id, hold_id,
	seats, amount, status,
	payment_status, payment_method, payment_provider, payment_method_id,
	payment_error, payment_refunded_amount,
	version, created_at, updated_at
`

// Create inserts a new booking record at version 1
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("ride_id", booking.RideID),
		attribute.String("passenger_id", booking.PassengerID),
	)

	query := `
		INSERT INTO bookings (
			id, reference_code, ride_id, passenger_id, hold_id,
			seats, amount, status,
			payment_status, payment_method, payment_provider, payment_method_id,
			payment_error, payment_refunded_amount,
			version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14,
			$15, $16, $17
		)
	`

	booking.Version = 1
	_, err := r.pool.Exec(ctx, query,
		booking.ID,
		booking.ReferenceCode,
		booking.RideID,
		booking.PassengerID,
		booking.HoldID,
		booking.Seats,
		booking.Amount,
		booking.Status.String(),
		booking.PaymentStatus.String(),
		nullString(booking.PaymentMethod),
		nullString(booking.PaymentProvider),
		nullString(booking.PaymentMethodID),
		nullString(booking.PaymentError),
		booking.PaymentRefundedAmount,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isUniqueViolation(err) {
			return domain.ErrReferenceCodeTaken
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := r.queryOne(ctx, query, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByReferenceCode retrieves a booking by its human-facing reference code
func (r *PostgresBookingRepository) GetByReferenceCode(ctx context.Context, code string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_reference_code")
	defer span.End()

	span.SetAttributes(attribute.String("reference_code", code))

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference_code = $1`
	booking, err := r.queryOne(ctx, query, code)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Update saves a booking guarded by its version column. The row is only
// written when the stored version matches the version the caller read;
// otherwise domain.ErrVersionConflict is returned and the caller must
// re-read and re-apply its change.
func (r *PostgresBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.Int64("version", booking.Version),
	)

	query := `
		UPDATE bookings SET
			hold_id = $1,
			amount = $2,
			status = $3,
			payment_status = $4,
			payment_method = $5,
			payment_provider = $6,
			payment_method_id = $7,
			payment_error = $8,
			payment_refunded_amount = $9,
			version = version + 1,
			updated_at = $10
		WHERE id = $11 AND version = $12
	`

	tag, err := r.pool.Exec(ctx, query,
		booking.HoldID,
		booking.Amount,
		booking.Status.String(),
		booking.PaymentStatus.String(),
		nullString(booking.PaymentMethod),
		nullString(booking.PaymentProvider),
		nullString(booking.PaymentMethodID),
		nullString(booking.PaymentError),
		booking.PaymentRefundedAmount,
		booking.UpdatedAt,
		booking.ID,
		booking.Version,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the row is gone or another writer bumped the version.
		if _, getErr := r.GetByID(ctx, booking.ID); getErr != nil {
			span.SetStatus(codes.Error, "not found")
			return getErr
		}
		span.SetStatus(codes.Error, "version conflict")
		return domain.ErrVersionConflict
	}

	booking.Version++
	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *PostgresBookingRepository) queryOne(ctx context.Context, query string, arg interface{}) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		status          string
		paymentStatus   string
		paymentMethod   *string
		paymentProvider *string
		paymentMethodID *string
		paymentError    *string
	)

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&booking.ID,
		&booking.ReferenceCode,
		&booking.RideID,
		&booking.PassengerID,
		&booking.HoldID,
		&booking.Seats,
		&booking.Amount,
		&status,
		&paymentStatus,
		&paymentMethod,
		&paymentProvider,
		&paymentMethodID,
		&paymentError,
		&booking.PaymentRefundedAmount,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	booking.Status = domain.BookingStatus(status)
	booking.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if paymentMethod != nil {
		booking.PaymentMethod = *paymentMethod
	}
	if paymentProvider != nil {
		booking.PaymentProvider = *paymentProvider
	}
	if paymentMethodID != nil {
		booking.PaymentMethodID = *paymentMethodID
	}
	if paymentError != nil {
		booking.PaymentError = *paymentError
	}
	return booking, nil
}

// nullString converts an empty string to a nil pointer for nullable columns
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
