package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

// Snapshot is the full authoritative state pushed to subscribers. The
// bridge never diffs; every change event triggers a complete reload so
// clients cannot drift from the store.
type Snapshot struct {
	Trip         *models.Trip          `json:"trip"`
	Destinations []*models.Destination `json:"destinations"`
}

// Handlers receives reloaded state for one subscribed trip. Any handler
// may be nil; OnError receives reload failures.
type Handlers struct {
	OnDestinationsChange func(snapshot *Snapshot)
	OnTripChange         func(snapshot *Snapshot)
	OnError              func(err error)
}

// subscription tracks the event-bus tokens held for one trip
type subscription struct {
	destToken int
	tripToken int
}

// Bridge connects the event bus to per-trip subscribers. Each change
// event for a subscribed trip causes a full state refetch.
type Bridge struct {
	storage interfaces.StorageManager
	events  interfaces.EventService
	logger  arbor.ILogger

	mu   sync.Mutex
	subs map[string]*subscription
}

// NewBridge creates a new realtime sync bridge
func NewBridge(storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger) *Bridge {
	return &Bridge{
		storage: storage,
		events:  events,
		logger:  logger,
		subs:    make(map[string]*subscription),
	}
}

// Subscribe registers handlers for one trip's change events. Subscribing
// a trip that is already subscribed replaces the prior registration.
func (b *Bridge) Subscribe(tripID string, handlers Handlers) error {
	if tripID == "" {
		return fmt.Errorf("trip ID cannot be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.subs[tripID]; ok {
		b.teardown(tripID, prev)
	}

	destToken, err := b.events.Subscribe(interfaces.EventDestinationsChanged, func(ctx context.Context, event interfaces.Event) error {
		if payloadTripID(event) != tripID {
			return nil
		}
		b.reload(ctx, tripID, handlers.OnDestinationsChange, handlers.OnError)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to destination changes: %w", err)
	}

	tripToken, err := b.events.Subscribe(interfaces.EventTripChanged, func(ctx context.Context, event interfaces.Event) error {
		if payloadTripID(event) != tripID {
			return nil
		}
		b.reload(ctx, tripID, handlers.OnTripChange, handlers.OnError)
		return nil
	})
	if err != nil {
		if uerr := b.events.Unsubscribe(interfaces.EventDestinationsChanged, destToken); uerr != nil {
			b.logger.Warn().Err(uerr).Msg("Failed to release destination subscription")
		}
		return fmt.Errorf("failed to subscribe to trip changes: %w", err)
	}

	b.subs[tripID] = &subscription{destToken: destToken, tripToken: tripToken}

	b.logger.Debug().
		Str("trip_id", tripID).
		Msg("Realtime subscription established")

	return nil
}

// Unsubscribe releases both event streams for a trip
func (b *Bridge) Unsubscribe(tripID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[tripID]
	if !ok {
		return fmt.Errorf("no subscription for trip: %s", tripID)
	}

	b.teardown(tripID, sub)
	return nil
}

// Close releases all subscriptions
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for tripID, sub := range b.subs {
		b.teardown(tripID, sub)
	}
	return nil
}

// teardown releases one subscription; caller holds the lock
func (b *Bridge) teardown(tripID string, sub *subscription) {
	if err := b.events.Unsubscribe(interfaces.EventDestinationsChanged, sub.destToken); err != nil {
		b.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to release destination subscription")
	}
	if err := b.events.Unsubscribe(interfaces.EventTripChanged, sub.tripToken); err != nil {
		b.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to release trip subscription")
	}
	delete(b.subs, tripID)
}

// reload fetches the full trip state and delivers it to the handler
func (b *Bridge) reload(ctx context.Context, tripID string, deliver func(*Snapshot), onError func(error)) {
	if deliver == nil {
		return
	}

	trip, err := b.storage.TripStorage().GetTrip(ctx, tripID)
	if err != nil {
		b.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to reload trip")
		if onError != nil {
			onError(fmt.Errorf("failed to reload trip %s: %w", tripID, err))
		}
		return
	}

	dests, err := b.storage.DestinationStorage().ListByTrip(ctx, tripID)
	if err != nil {
		b.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to reload destinations")
		if onError != nil {
			onError(fmt.Errorf("failed to reload destinations for trip %s: %w", tripID, err))
		}
		return
	}

	deliver(&Snapshot{Trip: trip, Destinations: dests})
}

// payloadTripID extracts the trip_id from an event payload
func payloadTripID(event interfaces.Event) string {
	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		return ""
	}
	tripID, _ := payload["trip_id"].(string)
	return tripID
}
