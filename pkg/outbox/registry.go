package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
)

// ResolvedEvent is the publisher-side view of an outbox row: the target topic
// plus the message attributes and body to send.
type ResolvedEvent struct {
	Topic      string
	Attributes map[string]string
	Body       []byte
}

// Registry maps event types to Pub/Sub topics. All licensing events share one
// domain topic today; the indirection keeps per-event topics possible.
type Registry struct {
	domainTopic string
}

func NewRegistry(domainTopic string) (*Registry, error) {
	if domainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	return &Registry{domainTopic: domainTopic}, nil
}

// Resolve validates the stored row and assembles the outgoing message.
func (r *Registry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	if !event.EventType.IsValid() {
		return nil, fmt.Errorf("unroutable event type %q", event.EventType)
	}
	var envelope PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope for %s: %w", event.ID, err)
	}
	if envelope.EventID == "" {
		return nil, fmt.Errorf("envelope for %s missing event id", event.ID)
	}
	return &ResolvedEvent{
		Topic: r.domainTopic,
		Attributes: map[string]string{
			"event_type":     string(event.EventType),
			"event_id":       envelope.EventID,
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		},
		Body: event.Payload,
	}, nil
}
