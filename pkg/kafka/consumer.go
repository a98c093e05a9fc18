package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Record is the transport-agnostic view of a consumed message
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       string
	Value     []byte
	Headers   map[string]string
}

// Handler processes a single consumed record. A non-nil error is logged by
// the caller; the record is committed either way (poison handling belongs to
// the retry/DLQ layer above).
type Handler func(ctx context.Context, record *Record) error

// ConsumerConfig holds Kafka consumer group configuration
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	ClientID         string
	Topics           []string
	SessionTimeout   time.Duration
	RebalanceTimeout time.Duration
}

// Consumer is a consumer-group wrapper over franz-go. Records within a
// partition are dispatched in order; offsets are committed after each poll.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	onError func(err error)
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// NewConsumer creates a consumer group subscribed to the configured topics
func NewConsumer(ctx context.Context, cfg *ConsumerConfig, handler Handler, onError func(err error)) (*Consumer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.RebalanceTimeout == 0 {
		cfg.RebalanceTimeout = 60 * time.Second
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ClientID(cfg.ClientID),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.RebalanceTimeout(cfg.RebalanceTimeout),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping kafka: %w", err)
	}

	return &Consumer{
		client:  client,
		handler: handler,
		onError: onError,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Run polls and dispatches until the context is canceled or Stop is called.
// Records are processed sequentially per poll to preserve per-partition order.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fetchErr := range errs {
				c.reportError(fmt.Errorf("fetch error on %s[%d]: %w", fetchErr.Topic, fetchErr.Partition, fetchErr.Err))
			}
			continue
		}

		fetches.EachRecord(func(r *kgo.Record) {
			record := &Record{
				Topic:     r.Topic,
				Partition: r.Partition,
				Offset:    r.Offset,
				Key:       string(r.Key),
				Value:     r.Value,
				Headers:   headerMap(r.Headers),
			}
			if err := c.handler(ctx, record); err != nil {
				c.reportError(fmt.Errorf("handler failed for %s[%d]@%d: %w", r.Topic, r.Partition, r.Offset, err))
			}
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.reportError(fmt.Errorf("failed to commit offsets: %w", err))
		}
	}
}

// Stop stops the consumer and waits for the poll loop to exit
func (c *Consumer) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
		c.client.Close()
	})
	<-c.doneCh
}

func (c *Consumer) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func headerMap(headers []kgo.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}
