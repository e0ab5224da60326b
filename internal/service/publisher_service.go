// FILE: internal/service/publisher_service.go
package service

import (
	"context"
	"encoding/json"

	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic names on the in-process bus.
const (
	TopicUIEvents     = "ui_events"
	TopicDomainEvents = "domain_events"
)

type IPublisherService interface {
	// PublishUIEvent queues a fire-and-forget broadcast for connected surfaces.
	PublishUIEvent(ctx context.Context, event model.UIEvent) error

	// PublishDomainEvent queues a domain event for export to the event bus.
	PublishDomainEvent(ctx context.Context, event events.Event) error
}

type publisherService struct {
	pubSub *gochannel.GoChannel
}

func NewPublisherService(pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		pubSub: pubSub,
	}
}

func (ps *publisherService) PublishUIEvent(ctx context.Context, event model.UIEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return ps.pubSub.Publish(TopicUIEvents, message.NewMessage(watermill.NewUUID(), payload))
}

// domainEventEnvelope carries an event across the in-process bus so the pump
// can rebuild it for the external publisher.
type domainEventEnvelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt int64                  `json:"occurred_at"`
}

func (ps *publisherService) PublishDomainEvent(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(domainEventEnvelope{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp().Unix(),
	})
	if err != nil {
		return err
	}
	return ps.pubSub.Publish(TopicDomainEvents, message.NewMessage(watermill.NewUUID(), payload))
}
