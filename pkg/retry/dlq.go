package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ReasonMaxRetries is the failure reason attached to messages that exhausted
// their retry budget.
const ReasonMaxRetries = "max_retries"

// DLQSuffix is appended to the original topic to form the dead-letter topic.
const DLQSuffix = ".dlq"

// DLQMessage is the envelope published to `<topic>.dlq`
type DLQMessage struct {
	ID            string            `json:"id"`
	OriginalTopic string            `json:"original_topic"`
	OriginalKey   string            `json:"original_key"`
	Payload       json.RawMessage   `json:"payload"`
	Headers       map[string]string `json:"headers,omitempty"`
	Reason        string            `json:"reason"`
	Error         string            `json:"error"`
	Attempts      int               `json:"attempts"`
	FirstFailedAt time.Time         `json:"first_failed_at"`
	MovedToDLQAt  time.Time         `json:"moved_to_dlq_at"`
	Source        string            `json:"source"`
}

// Publisher publishes JSON payloads to a topic with a partition key
type Publisher interface {
	PublishJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error
}

// DLQTopic returns the dead-letter topic for a given topic
func DLQTopic(topic string) string {
	return topic + DLQSuffix
}

// Message describes the event being processed, for DLQ bookkeeping
type Message struct {
	ID      string
	Topic   string
	Key     string
	Payload json.RawMessage
	Headers map[string]string
}

// DLQHandlerConfig contains configuration for the DLQ handler
type DLQHandlerConfig struct {
	// RetryConfig governs the retry budget (default: DefaultConfig)
	RetryConfig *Config
	// Source names the publishing service
	Source string
	// OnDLQ is called whenever a message is moved to the DLQ
	OnDLQ func(msg *DLQMessage)
}

// DLQHandler wraps an event handler with retry and dead-lettering. A handler
// that keeps failing never stalls the consumer loop: the original event plus
// the failure reason end up on `<topic>.dlq` instead.
type DLQHandler struct {
	retrier   *Retrier
	publisher Publisher
	config    *DLQHandlerConfig
}

// NewDLQHandler creates a new DLQ handler
func NewDLQHandler(publisher Publisher, config *DLQHandlerConfig) *DLQHandler {
	if config == nil {
		config = &DLQHandlerConfig{}
	}
	if config.Source == "" {
		config.Source = "unknown"
	}
	return &DLQHandler{
		retrier:   New(config.RetryConfig),
		publisher: publisher,
		config:    config,
	}
}

// ProcessWithDLQ runs op with retries; on exhaustion it publishes the message
// to the dead-letter topic and returns nil so callers can commit and move on.
// The DLQ publish error itself is returned (callers decide whether to halt).
func (h *DLQHandler) ProcessWithDLQ(ctx context.Context, msg *Message, op Operation) error {
	firstFailedAt := time.Now()

	result := h.retrier.Do(ctx, op)
	if result.Err == nil {
		return nil
	}

	errMsg := result.Err.Error()
	if result.LastError != nil {
		errMsg = result.LastError.Error()
	}

	dlqMsg := &DLQMessage{
		ID:            msg.ID,
		OriginalTopic: msg.Topic,
		OriginalKey:   msg.Key,
		Payload:       msg.Payload,
		Headers:       msg.Headers,
		Reason:        ReasonMaxRetries,
		Error:         errMsg,
		Attempts:      result.Attempts,
		FirstFailedAt: firstFailedAt,
		MovedToDLQAt:  time.Now(),
		Source:        h.config.Source,
	}

	if h.config.OnDLQ != nil {
		h.config.OnDLQ(dlqMsg)
	}

	headers := map[string]string{
		"original_topic": msg.Topic,
		"reason":         ReasonMaxRetries,
		"error":          errMsg,
		"attempts":       fmt.Sprintf("%d", result.Attempts),
		"source":         h.config.Source,
	}

	if err := h.publisher.PublishJSON(ctx, DLQTopic(msg.Topic), msg.Key, dlqMsg, headers); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w (original error: %v)", err, result.LastError)
	}

	return nil
}
