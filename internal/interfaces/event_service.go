package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventDestinationsChanged fires after any destination mutation for a trip.
	// Payload carries the trip_id; subscribers re-fetch the full set.
	EventDestinationsChanged EventType = "destinations_changed"

	// EventTripChanged fires after a trip row insert or update.
	EventTripChanged EventType = "trip_changed"

	// EventAssistantStateChanged fires on every processing-state transition.
	EventAssistantStateChanged EventType = "assistant_state_changed"

	// EventMessageAppended fires when a chat message is added to a transcript.
	EventMessageAppended EventType = "message_appended"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus. Subscribe returns a token so
// individual handlers can be torn down (the sync bridge re-subscribes per
// trip and must release its prior handlers).
type EventService interface {
	// Subscribe registers a handler for an event type and returns a token
	// usable with Unsubscribe
	Subscribe(eventType EventType, handler EventHandler) (int, error)

	// Unsubscribe removes a previously registered handler by its token
	Unsubscribe(eventType EventType, token int) error

	// Publish sends an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
