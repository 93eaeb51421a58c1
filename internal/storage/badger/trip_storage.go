package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

// TripStorage implements the TripStorage interface for Badger
type TripStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTripStorage creates a new TripStorage instance
func NewTripStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TripStorage {
	return &TripStorage{
		db:     db,
		logger: logger,
	}
}

// CreateTrip persists a new trip
func (s *TripStorage) CreateTrip(ctx context.Context, trip *models.Trip) error {
	now := time.Now()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = now
	}
	trip.UpdatedAt = now

	if err := s.db.Store().Insert(trip.ID, trip); err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	return nil
}

// GetTrip retrieves a trip by ID
func (s *TripStorage) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.Store().Get(id, &trip)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// UpdateTrip updates an existing trip
func (s *TripStorage) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	trip.UpdatedAt = time.Now()
	err := s.db.Store().Update(trip.ID, trip)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrTripNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	return nil
}

// DeleteTrip removes a trip by ID
func (s *TripStorage) DeleteTrip(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.Trip{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrTripNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return nil
}

// ListTrips returns all trips ordered by updated_at DESC
func (s *TripStorage) ListTrips(ctx context.Context) ([]*models.Trip, error) {
	var trips []*models.Trip
	err := s.db.Store().Find(&trips, badgerhold.Where("ID").Ne("").SortBy("UpdatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}
