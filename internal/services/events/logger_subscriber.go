package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/voyager/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		// Extract common fields from payload if available
		var tripID, state, role string
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["trip_id"].(string); ok {
				tripID = id
			}
			if s, ok := payload["state"].(string); ok {
				state = s
			}
			if r, ok := payload["role"].(string); ok {
				role = r
			}
		}

		// Log event with structured fields
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if tripID != "" {
			logEvent = logEvent.Str("trip_id", tripID)
		}
		if state != "" {
			logEvent = logEvent.Str("state", state)
		}
		if role != "" {
			logEvent = logEvent.Str("role", role)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventTripChanged,
		interfaces.EventDestinationsChanged,
		interfaces.EventAssistantStateChanged,
		interfaces.EventMessageAppended,
	}

	for _, eventType := range eventTypes {
		if _, err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
