package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

// DestinationStorage implements the DestinationStorage interface for Badger
type DestinationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDestinationStorage creates a new DestinationStorage instance
func NewDestinationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DestinationStorage {
	return &DestinationStorage{
		db:     db,
		logger: logger,
	}
}

// InsertDestination persists a new destination
func (s *DestinationStorage) InsertDestination(ctx context.Context, dest *models.Destination) error {
	now := time.Now()
	if dest.CreatedAt.IsZero() {
		dest.CreatedAt = now
	}
	dest.UpdatedAt = now

	if err := s.db.Store().Insert(dest.ID, dest); err != nil {
		return fmt.Errorf("failed to insert destination: %w", err)
	}
	return nil
}

// UpdateDestination updates an existing destination
func (s *DestinationStorage) UpdateDestination(ctx context.Context, dest *models.Destination) error {
	dest.UpdatedAt = time.Now()
	err := s.db.Store().Update(dest.ID, dest)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrDestinationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update destination: %w", err)
	}
	return nil
}

// DeleteDestination removes a destination by ID
func (s *DestinationStorage) DeleteDestination(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.Destination{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrDestinationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete destination: %w", err)
	}
	return nil
}

// ListByTrip returns all destinations for a trip ordered by
// (visit_date, order_index) ascending
func (s *DestinationStorage) ListByTrip(ctx context.Context, tripID string) ([]*models.Destination, error) {
	var dests []*models.Destination
	err := s.db.Store().Find(&dests, badgerhold.Where("TripID").Eq(tripID).Index("TripID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}

	sort.SliceStable(dests, func(i, j int) bool {
		if dests[i].VisitDate != dests[j].VisitDate {
			return dests[i].VisitDate < dests[j].VisitDate
		}
		return dests[i].OrderIndex < dests[j].OrderIndex
	})

	return dests, nil
}

// FindByName returns all destinations in a trip with an exact name match
func (s *DestinationStorage) FindByName(ctx context.Context, tripID string, name string) ([]*models.Destination, error) {
	var dests []*models.Destination
	err := s.db.Store().Find(&dests,
		badgerhold.Where("TripID").Eq(tripID).Index("TripID").And("Name").Eq(name))
	if err != nil {
		return nil, fmt.Errorf("failed to find destinations by name: %w", err)
	}
	return dests, nil
}

// DeleteByTrip removes every destination belonging to a trip
func (s *DestinationStorage) DeleteByTrip(ctx context.Context, tripID string) error {
	err := s.db.Store().DeleteMatching(&models.Destination{},
		badgerhold.Where("TripID").Eq(tripID).Index("TripID"))
	if err != nil {
		return fmt.Errorf("failed to delete destinations for trip: %w", err)
	}
	return nil
}
