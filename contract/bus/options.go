package bus

import "github.com/next-trace/scg-contracts/contract/event"

// PublishOptions controls integration event publishing.
// An empty Topic routes by DefaultTopic; an empty Key falls back to the event's partition key.
type PublishOptions struct {
	Topic   string
	Key     string
	Headers map[string]string
}

// TopicOf resolves the destination topic for e.
func (o PublishOptions) TopicOf(e event.IntegrationEvent) string {
	if o.Topic != "" {
		return o.Topic
	}

	return DefaultTopic(e)
}

// KeyOf resolves the ordering key for e.
func (o PublishOptions) KeyOf(e event.IntegrationEvent) string {
	if o.Key != "" {
		return o.Key
	}

	return e.PartitionKey()
}

// DefaultTopic routes an event to a topic named after its event type.
func DefaultTopic(e event.IntegrationEvent) string { return e.EventType() }
