package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/autentica/marketplace/internal/domain"
)

// ChannelEvents carries every marketplace and collection event as JSON
// envelopes of the form {"event": name, "data": ...}.
const ChannelEvents = "marketplace:events"

// eventEnvelope is the wire form of one published event.
type eventEnvelope struct {
	Event string       `json:"event"`
	Data  domain.Event `json:"data"`
}

// EventPublisher is a domain.EventSink that forwards every event to the
// signal bus. Emit never fails the emitting operation: publish errors are
// logged and dropped.
type EventPublisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewEventPublisher creates an EventPublisher.
func NewEventPublisher(bus domain.SignalBus, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		bus:    bus,
		logger: logger.With(slog.String("component", "event_publisher")),
	}
}

// Emit publishes the event on the events channel.
func (p *EventPublisher) Emit(event domain.Event) {
	payload, err := json.Marshal(eventEnvelope{Event: event.EventName(), Data: event})
	if err != nil {
		p.logger.Error("event marshal failed",
			slog.String("event", event.EventName()),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := p.bus.Publish(context.Background(), ChannelEvents, payload); err != nil {
		p.logger.Warn("event publish failed",
			slog.String("event", event.EventName()),
			slog.String("error", err.Error()),
		)
	}
}

var _ domain.EventSink = (*EventPublisher)(nil)
