package metrics

import (
	"context"
	"time"
)

// Recorder receives business metrics from the saga and the payment reactor.
// It is injected into constructors so callers can swap in a no-op or a test
// double; nothing in this module keeps package-level counters.
type Recorder interface {
	// BookingCreated counts a successfully completed booking saga
	BookingCreated(ctx context.Context)
	// BookingCancelled counts an explicit cancellation
	BookingCancelled(ctx context.Context)
	// SagaFailed counts a failed saga, labelled with its reason code
	SagaFailed(ctx context.Context, reason string)
	// SagaDuration records end-to-end saga latency
	SagaDuration(ctx context.Context, d time.Duration)
	// PaymentEventProcessed counts a handled payment event per topic
	PaymentEventProcessed(ctx context.Context, topic string)
	// PaymentEventDropped counts a payment event rejected by validation
	// or referencing a missing booking
	PaymentEventDropped(ctx context.Context, topic, reason string)
	// EventDeadLettered counts an event forwarded to a DLQ topic
	EventDeadLettered(ctx context.Context, topic string)
}

// Noop is a Recorder that discards everything
type Noop struct{}

// NewNoop creates a no-op recorder
func NewNoop() *Noop { return &Noop{} }

func (*Noop) BookingCreated(context.Context)                      {}
func (*Noop) BookingCancelled(context.Context)                    {}
func (*Noop) SagaFailed(context.Context, string)                  {}
func (*Noop) SagaDuration(context.Context, time.Duration)         {}
func (*Noop) PaymentEventProcessed(context.Context, string)       {}
func (*Noop) PaymentEventDropped(context.Context, string, string) {}
func (*Noop) EventDeadLettered(context.Context, string)           {}
