// FILE: internal/service/event_pump_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KayTeo/mimir-extension/internal/pkg/logger"
	"github.com/KayTeo/mimir-extension/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// UIBroadcaster fans a serialized event out to every connected surface.
// Implemented by the websocket hub.
type UIBroadcaster interface {
	BroadcastRaw(data []byte)
}

// DomainEventSink exports domain events out of the process.
// Implemented by the NATS publisher.
type DomainEventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type IEventPumpService interface {
	Run(ctx context.Context) error
}

type eventPumpService struct {
	pubSub      *gochannel.GoChannel
	broadcaster UIBroadcaster
	eventSink   DomainEventSink
	logger      logger.ILogger
}

func NewEventPumpService(
	pubSub *gochannel.GoChannel,
	broadcaster UIBroadcaster,
	eventSink DomainEventSink,
	log logger.ILogger,
) IEventPumpService {
	return &eventPumpService{
		pubSub:      pubSub,
		broadcaster: broadcaster,
		eventSink:   eventSink,
		logger:      log,
	}
}

func (eps *eventPumpService) Run(ctx context.Context) error {
	uiMessages, err := eps.pubSub.Subscribe(ctx, TopicUIEvents)
	if err != nil {
		return err
	}

	domainMessages, err := eps.pubSub.Subscribe(ctx, TopicDomainEvents)
	if err != nil {
		return err
	}

	go func() {
		for msg := range uiMessages {
			eps.forwardUIEvent(msg)
		}
	}()

	go func() {
		for msg := range domainMessages {
			eps.exportDomainEvent(ctx, msg)
		}
	}()

	return nil
}

func (eps *eventPumpService) forwardUIEvent(msg *message.Message) {
	eps.broadcaster.BroadcastRaw(msg.Payload)
	msg.Ack()
}

func (eps *eventPumpService) exportDomainEvent(ctx context.Context, msg *message.Message) {
	var envelope domainEventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		eps.logger.Error("EventPump", "Failed to unmarshal domain event", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	// Export is best-effort: the bus being down must never stall captures.
	if eps.eventSink != nil {
		event := events.BaseEvent{
			Type:       envelope.Type,
			Data:       envelope.Payload,
			OccurredAt: time.Unix(envelope.OccurredAt, 0),
		}
		if err := eps.eventSink.Publish(ctx, event); err != nil {
			eps.logger.Warn("EventPump", "Failed to export domain event", map[string]interface{}{
				"type":  envelope.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
