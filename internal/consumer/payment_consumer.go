package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/safarhub/ride-booking/internal/domain"
	"github.com/safarhub/ride-booking/internal/metrics"
	"github.com/safarhub/ride-booking/pkg/kafka"
	"github.com/safarhub/ride-booking/pkg/logger"
	"github.com/safarhub/ride-booking/pkg/retry"
)

// PaymentTopics lists the topics the reactor subscribes to
var PaymentTopics = []string{
	domain.TopicPaymentCaptured,
	domain.TopicPaymentFailed,
	domain.TopicPaymentRefunded,
}

// Claimer atomically claims a key once per TTL window; satisfied by
// *idempotency.Guard
type Claimer interface {
	FirstTime(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// PaymentConsumerConfig holds PaymentConsumer dependencies
type PaymentConsumerConfig struct {
	Reactor  *Reactor
	Guard    Claimer
	DLQ      *retry.DLQHandler
	Recorder metrics.Recorder
	// GuardTTL is the dedupe window per event (default: guard default)
	GuardTTL time.Duration
}

// PaymentConsumer adapts the Reactor to the event bus. Every record first
// passes the idempotency guard, then runs under the retry+DLQ wrapper, so a
// redelivered event is skipped and a poison event ends up on `<topic>.dlq`
// instead of stalling the partition.
type PaymentConsumer struct {
	reactor  *Reactor
	guard    Claimer
	dlq      *retry.DLQHandler
	recorder metrics.Recorder
	guardTTL time.Duration
}

// NewPaymentConsumer creates the kafka-facing payment event consumer
func NewPaymentConsumer(cfg *PaymentConsumerConfig) *PaymentConsumer {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PaymentConsumer{
		reactor:  cfg.Reactor,
		guard:    cfg.Guard,
		dlq:      cfg.DLQ,
		recorder: recorder,
		guardTTL: cfg.GuardTTL,
	}
}

// Handle processes one record from any of the payment topics. It is the
// kafka.Handler registered with the consumer group.
func (c *PaymentConsumer) Handle(ctx context.Context, record *kafka.Record) error {
	key := eventKey(record)

	first, err := c.guard.FirstTime(ctx, key, c.guardTTL)
	if err != nil {
		// Fail closed: without the guard we cannot promise at-most-once,
		// so the record is retried later.
		return fmt.Errorf("idempotency check failed for %s: %w", key, err)
	}
	if !first {
		logger.Get().Debug("skipping already-processed event",
			zap.String("topic", record.Topic),
			zap.String("key", key))
		return nil
	}

	msg := &retry.Message{
		ID:      key,
		Topic:   record.Topic,
		Key:     record.Key,
		Payload: record.Value,
		Headers: record.Headers,
	}
	return c.dlq.ProcessWithDLQ(ctx, msg, func(ctx context.Context) error {
		return c.dispatch(ctx, record)
	})
}

// dispatch unmarshals the record for its topic and invokes the matching
// reactor handler. Malformed payloads are permanent failures; retrying
// cannot fix them.
func (c *PaymentConsumer) dispatch(ctx context.Context, record *kafka.Record) error {
	switch record.Topic {
	case domain.TopicPaymentCaptured:
		evt := &domain.PaymentCapturedEvent{}
		if err := json.Unmarshal(record.Value, evt); err != nil {
			return retry.Permanent(fmt.Errorf("malformed payment.captured event: %w", err))
		}
		return c.reactor.HandlePaymentCaptured(ctx, evt)

	case domain.TopicPaymentFailed:
		evt := &domain.PaymentFailedEvent{}
		if err := json.Unmarshal(record.Value, evt); err != nil {
			return retry.Permanent(fmt.Errorf("malformed payment.failed event: %w", err))
		}
		return c.reactor.HandlePaymentFailed(ctx, evt)

	case domain.TopicPaymentRefunded:
		evt := &domain.PaymentRefundedEvent{}
		if err := json.Unmarshal(record.Value, evt); err != nil {
			return retry.Permanent(fmt.Errorf("malformed payment.refunded event: %w", err))
		}
		return c.reactor.HandlePaymentRefunded(ctx, evt)
	}
	return retry.Permanent(fmt.Errorf("unexpected topic %s", record.Topic))
}

// eventKey dedupes on the producer-assigned event id when present, falling
// back to the record's position
func eventKey(record *kafka.Record) string {
	var envelope struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(record.Value, &envelope); err == nil && envelope.EventID != "" {
		return record.Topic + ":" + envelope.EventID
	}
	return fmt.Sprintf("%s:%d:%d", record.Topic, record.Partition, record.Offset)
}
