package saga

import "context"

// EventBus publishes immutable facts keyed by an ordering key so a single
// consumer sees per-entity events in publish order. Satisfied by
// *kafka.Producer.
type EventBus interface {
	PublishJSON(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error
}
