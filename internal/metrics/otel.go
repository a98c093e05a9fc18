package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelRecorder implements Recorder on top of the OpenTelemetry meter
type OTelRecorder struct {
	bookingsCreated   metric.Int64Counter
	bookingsCancelled metric.Int64Counter
	sagaFailures      metric.Int64Counter
	sagaDuration      metric.Float64Histogram
	eventsProcessed   metric.Int64Counter
	eventsDropped     metric.Int64Counter
	eventsDeadLetter  metric.Int64Counter
}

// NewOTelRecorder creates a Recorder backed by the global meter provider
func NewOTelRecorder() (*OTelRecorder, error) {
	meter := otel.Meter("ride-booking")

	bookingsCreated, err := meter.Int64Counter(
		"booking_creations_total",
		metric.WithDescription("Total number of bookings created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	bookingsCancelled, err := meter.Int64Counter(
		"booking_cancellations_total",
		metric.WithDescription("Total number of bookings cancelled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	sagaFailures, err := meter.Int64Counter(
		"booking_saga_failures_total",
		metric.WithDescription("Total number of failed booking sagas by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	sagaDuration, err := meter.Float64Histogram(
		"booking_saga_duration_seconds",
		metric.WithDescription("End-to-end booking saga duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	eventsProcessed, err := meter.Int64Counter(
		"payment_events_processed_total",
		metric.WithDescription("Total number of payment events handled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	eventsDropped, err := meter.Int64Counter(
		"payment_events_dropped_total",
		metric.WithDescription("Total number of payment events dropped"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	eventsDeadLetter, err := meter.Int64Counter(
		"events_dead_lettered_total",
		metric.WithDescription("Total number of events forwarded to a DLQ topic"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelRecorder{
		bookingsCreated:   bookingsCreated,
		bookingsCancelled: bookingsCancelled,
		sagaFailures:      sagaFailures,
		sagaDuration:      sagaDuration,
		eventsProcessed:   eventsProcessed,
		eventsDropped:     eventsDropped,
		eventsDeadLetter:  eventsDeadLetter,
	}, nil
}

func (r *OTelRecorder) BookingCreated(ctx context.Context) {
	r.bookingsCreated.Add(ctx, 1)
}

func (r *OTelRecorder) BookingCancelled(ctx context.Context) {
	r.bookingsCancelled.Add(ctx, 1)
}

func (r *OTelRecorder) SagaFailed(ctx context.Context, reason string) {
	r.sagaFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *OTelRecorder) SagaDuration(ctx context.Context, d time.Duration) {
	r.sagaDuration.Record(ctx, d.Seconds())
}

func (r *OTelRecorder) PaymentEventProcessed(ctx context.Context, topic string) {
	r.eventsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (r *OTelRecorder) PaymentEventDropped(ctx context.Context, topic, reason string) {
	r.eventsDropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("reason", reason),
	))
}

func (r *OTelRecorder) EventDeadLettered(ctx context.Context, topic string) {
	r.eventsDeadLetter.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}
