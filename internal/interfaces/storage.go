package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/voyager/internal/models"
)

// ErrTripNotFound is returned when a trip does not exist
var ErrTripNotFound = errors.New("trip not found")

// ErrDestinationNotFound is returned when a destination does not exist
var ErrDestinationNotFound = errors.New("destination not found")

// ErrCacheMiss is returned when no usable place cache entry exists
var ErrCacheMiss = errors.New("place cache miss")

// TripStorage - interface for trip persistence
type TripStorage interface {
	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	UpdateTrip(ctx context.Context, trip *models.Trip) error
	DeleteTrip(ctx context.Context, id string) error
	ListTrips(ctx context.Context) ([]*models.Trip, error)
}

// DestinationStorage - interface for destination persistence
type DestinationStorage interface {
	InsertDestination(ctx context.Context, dest *models.Destination) error
	UpdateDestination(ctx context.Context, dest *models.Destination) error
	DeleteDestination(ctx context.Context, id string) error

	// ListByTrip returns all destinations for a trip ordered by
	// (visit_date, order_index) ascending. This is the authoritative
	// post-mutation read used by reload-over-diff consumers.
	ListByTrip(ctx context.Context, tripID string) ([]*models.Destination, error)

	// FindByName returns all destinations in a trip with an exact name match
	FindByName(ctx context.Context, tripID string, name string) ([]*models.Destination, error)

	// DeleteByTrip removes every destination belonging to a trip
	DeleteByTrip(ctx context.Context, tripID string) error
}

// MessageStorage - interface for chat transcript persistence
type MessageStorage interface {
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListByTrip(ctx context.Context, tripID string) ([]*models.ChatMessage, error)
	DeleteByTrip(ctx context.Context, tripID string) error
}

// PlaceCacheStorage - interface for the durable place resolution cache.
// Writes are idempotent upserts keyed by the provider place ID so concurrent
// writers converge rather than duplicate.
type PlaceCacheStorage interface {
	// Upsert inserts or replaces a cache entry keyed by PlaceID
	Upsert(ctx context.Context, place *models.CachedPlace) error

	// GetByPlaceID returns the entry for a place ID regardless of expiry
	GetByPlaceID(ctx context.Context, placeID string) (*models.CachedPlace, error)

	// FindByName returns unexpired entries whose name matches the query
	// (case-insensitive, exact or prefix), scoped to the location hint
	// when one is given, best match first
	FindByName(ctx context.Context, name string, hint string, now time.Time) ([]*models.CachedPlace, error)

	// DeleteExpired removes entries whose expiry precedes now; returns the
	// number of rows removed
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	TripStorage() TripStorage
	DestinationStorage() DestinationStorage
	MessageStorage() MessageStorage
	PlaceCacheStorage() PlaceCacheStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
