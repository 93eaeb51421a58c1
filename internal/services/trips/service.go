package trips

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
	"github.com/ternarybob/voyager/internal/services/resolver"
)

// Service owns trip and destination mutations. Every mutation publishes a
// change event; consumers re-fetch the authoritative ordered list instead
// of patching local state.
type Service struct {
	storage   interfaces.StorageManager
	events    interfaces.EventService
	batchSize int
	logger    arbor.ILogger
}

// NewService creates a new trip service
func NewService(
	cfg *common.AssistantConfig,
	storage interfaces.StorageManager,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	return &Service{
		storage:   storage,
		events:    events,
		batchSize: batchSize,
		logger:    logger,
	}
}

// CreateTrip creates a new trip and announces it
func (s *Service) CreateTrip(ctx context.Context, name string, totalDays int, startDate, endDate, language string) (*models.Trip, error) {
	if name == "" {
		name = "My Trip"
	}
	if totalDays < 1 {
		totalDays = 1
	}

	trip := &models.Trip{
		ID:        common.NewTripID(),
		Name:      name,
		TotalDays: totalDays,
		StartDate: startDate,
		EndDate:   endDate,
		Language:  language,
	}

	if err := s.storage.TripStorage().CreateTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	s.logger.Info().
		Str("trip_id", trip.ID).
		Str("name", trip.Name).
		Int("total_days", trip.TotalDays).
		Msg("Trip created")

	s.publishTripChanged(ctx, trip.ID)

	return trip, nil
}

// GetTrip retrieves a trip by ID
func (s *Service) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	return s.storage.TripStorage().GetTrip(ctx, id)
}

// ListTrips returns all trips, most recently updated first
func (s *Service) ListTrips(ctx context.Context) ([]*models.Trip, error) {
	return s.storage.TripStorage().ListTrips(ctx)
}

// DeleteTrip removes a trip and everything hanging off it
func (s *Service) DeleteTrip(ctx context.Context, id string) error {
	if err := s.storage.DestinationStorage().DeleteByTrip(ctx, id); err != nil {
		return fmt.Errorf("failed to delete trip destinations: %w", err)
	}
	if err := s.storage.MessageStorage().DeleteByTrip(ctx, id); err != nil {
		return fmt.Errorf("failed to delete trip messages: %w", err)
	}
	if err := s.storage.TripStorage().DeleteTrip(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("trip_id", id).Msg("Trip deleted")
	s.publishTripChanged(ctx, id)
	return nil
}

// UpdateTripInfo applies a partial metadata patch to a trip
func (s *Service) UpdateTripInfo(ctx context.Context, tripID string, patch *models.TripInfoPatch) (*models.Trip, error) {
	if patch == nil {
		return nil, fmt.Errorf("trip info patch cannot be nil")
	}

	trip, err := s.storage.TripStorage().GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if patch.Name != "" {
		trip.Name = patch.Name
	}
	if patch.TotalDays > 0 {
		trip.TotalDays = patch.TotalDays
	}
	if patch.StartDate != "" {
		trip.StartDate = patch.StartDate
	}
	if patch.EndDate != "" {
		trip.EndDate = patch.EndDate
	}

	if err := s.storage.TripStorage().UpdateTrip(ctx, trip); err != nil {
		return nil, err
	}

	s.logger.Info().Str("trip_id", tripID).Msg("Trip info updated")
	s.publishTripChanged(ctx, tripID)

	return trip, nil
}

// ListDestinations returns the authoritative ordered destination list
func (s *Service) ListDestinations(ctx context.Context, tripID string) ([]*models.Destination, error) {
	return s.storage.DestinationStorage().ListByTrip(ctx, tripID)
}

// AddResolvedDestinations persists resolved places as destinations on the
// given day, appending after the day's existing entries. Writes go out in
// fixed-size batches; an insert failure drops the remainder of its batch
// so a bad row cannot wedge the whole turn. Returns the persisted
// destinations and the names that could not be added.
func (s *Service) AddResolvedDestinations(ctx context.Context, tripID string, day int, resolutions []resolver.Resolution) ([]*models.Destination, []string, error) {
	trip, err := s.storage.TripStorage().GetTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}

	if day < 1 {
		day = 1
	}
	if day > trip.TotalDays {
		day = trip.TotalDays
	}

	existing, err := s.storage.DestinationStorage().ListByTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	nextIndex := 1
	for _, d := range existing {
		if d.VisitDate == day && d.OrderIndex >= nextIndex {
			nextIndex = d.OrderIndex + 1
		}
	}

	var failed []string
	var pending []*models.Destination
	for _, res := range resolutions {
		if res.Err != nil || res.Place == nil {
			s.logger.Warn().
				Str("trip_id", tripID).
				Str("name", res.Input.Name).
				Err(res.Err).
				Msg("Skipping unresolved destination")
			failed = append(failed, res.Input.Name)
			continue
		}

		dest := &models.Destination{
			ID:               common.NewDestinationID(),
			TripID:           tripID,
			Name:             res.Place.Name,
			FormattedAddress: res.Place.FormattedAddress,
			PlaceID:          res.Place.PlaceID,
			Latitude:         res.Place.Latitude,
			Longitude:        res.Place.Longitude,
			VisitDate:        day,
			OrderIndex:       nextIndex,
			PlaceType:        res.Input.PlaceType,
			Rating:           res.Place.Rating,
			UserRatingsTotal: res.Place.UserRatingsTotal,
			EstimatedCost:    res.Input.EstimatedCost,
			VisitDurationMin: res.Input.VisitDuration,
			RecommendedByAI:  true,
		}
		nextIndex++
		pending = append(pending, dest)
	}

	var added []*models.Destination
	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		for i := start; i < end; i++ {
			if err := s.storage.DestinationStorage().InsertDestination(ctx, pending[i]); err != nil {
				s.logger.Error().
					Err(err).
					Str("trip_id", tripID).
					Str("name", pending[i].Name).
					Int("batch_start", start).
					Msg("Destination insert failed, dropping rest of batch")
				for j := i; j < end; j++ {
					failed = append(failed, pending[j].Name)
				}
				break
			}
			added = append(added, pending[i])
		}
	}

	if len(added) > 0 {
		s.touchTrip(ctx, trip)
		s.publishDestinationsChanged(ctx, tripID)
	}

	s.logger.Info().
		Str("trip_id", tripID).
		Int("added", len(added)).
		Int("failed", len(failed)).
		Int("day", day).
		Msg("Destinations added")

	return added, failed, nil
}

// RemoveDestinationsByNames deletes every destination whose name exactly
// matches one of the given names. All matches go, not just the first.
// Returns the number of rows removed.
func (s *Service) RemoveDestinationsByNames(ctx context.Context, tripID string, names []string) (int, error) {
	removed := 0
	for _, name := range names {
		matches, err := s.storage.DestinationStorage().FindByName(ctx, tripID, name)
		if err != nil {
			return removed, err
		}
		for _, dest := range matches {
			if err := s.storage.DestinationStorage().DeleteDestination(ctx, dest.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}

	if removed > 0 {
		if err := s.renumber(ctx, tripID); err != nil {
			return removed, err
		}
		s.publishDestinationsChanged(ctx, tripID)
	}

	s.logger.Info().
		Str("trip_id", tripID).
		Int("removed", removed).
		Msg("Destinations removed")

	return removed, nil
}

// ReorderDestinations applies day and position assignments by name, then
// renumbers each day to a contiguous 1-based sequence. Destinations not
// named keep their day and sort by their prior position.
func (s *Service) ReorderDestinations(ctx context.Context, tripID string, order []models.OrderEntry) error {
	dests, err := s.storage.DestinationStorage().ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}

	byName := make(map[string][]*models.Destination)
	for _, d := range dests {
		byName[d.Name] = append(byName[d.Name], d)
	}

	for _, entry := range order {
		matches, ok := byName[entry.Name]
		if !ok {
			s.logger.Warn().
				Str("trip_id", tripID).
				Str("name", entry.Name).
				Msg("Reorder entry names unknown destination, skipping")
			continue
		}
		for _, d := range matches {
			d.VisitDate = entry.Day
			d.OrderIndex = entry.OrderIndex
		}
	}

	if err := s.persistRenumbered(ctx, dests); err != nil {
		return err
	}

	s.publishDestinationsChanged(ctx, tripID)
	return nil
}

// MoveDestination moves one destination (first match by name) to a target
// day and optional position, then renumbers both days.
func (s *Service) MoveDestination(ctx context.Context, tripID string, name string, targetDay int, targetPosition int) error {
	matches, err := s.storage.DestinationStorage().FindByName(ctx, tripID, name)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return interfaces.ErrDestinationNotFound
	}

	moved := matches[0]
	moved.VisitDate = targetDay
	if targetPosition >= 1 {
		// Landing between neighbors: renumbering snaps everything back to
		// contiguous positions afterward
		moved.OrderIndex = targetPosition*2 - 1
	} else {
		moved.OrderIndex = 1 << 20 // append to end of day
	}

	if err := s.storage.DestinationStorage().UpdateDestination(ctx, moved); err != nil {
		return err
	}

	if err := s.renumberWithPriority(ctx, tripID, moved.ID); err != nil {
		return err
	}

	s.logger.Info().
		Str("trip_id", tripID).
		Str("name", name).
		Int("target_day", targetDay).
		Msg("Destination moved")

	s.publishDestinationsChanged(ctx, tripID)
	return nil
}

// renumber loads the trip's destinations and rewrites order indexes to a
// contiguous 1-based sequence per day.
func (s *Service) renumber(ctx context.Context, tripID string) error {
	dests, err := s.storage.DestinationStorage().ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	return s.persistRenumbered(ctx, dests)
}

// renumberWithPriority renumbers like renumber but breaks order ties in
// favor of the given destination, so a moved row wins its slot.
func (s *Service) renumberWithPriority(ctx context.Context, tripID string, priorityID string) error {
	dests, err := s.storage.DestinationStorage().ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}

	sort.SliceStable(dests, func(i, j int) bool {
		if dests[i].VisitDate != dests[j].VisitDate {
			return dests[i].VisitDate < dests[j].VisitDate
		}
		if dests[i].OrderIndex != dests[j].OrderIndex {
			return dests[i].OrderIndex < dests[j].OrderIndex
		}
		return dests[i].ID == priorityID
	})

	return s.writeSequential(ctx, dests)
}

// persistRenumbered sorts by (day, assigned index) and writes contiguous
// positions back. Ties preserve the incoming slice order, which reflects
// the prior persisted ordering.
func (s *Service) persistRenumbered(ctx context.Context, dests []*models.Destination) error {
	sort.SliceStable(dests, func(i, j int) bool {
		if dests[i].VisitDate != dests[j].VisitDate {
			return dests[i].VisitDate < dests[j].VisitDate
		}
		return dests[i].OrderIndex < dests[j].OrderIndex
	})

	return s.writeSequential(ctx, dests)
}

// writeSequential assigns 1..n per day in slice order and persists only
// the rows whose position actually changed.
func (s *Service) writeSequential(ctx context.Context, dests []*models.Destination) error {
	counters := make(map[int]int)
	for _, d := range dests {
		counters[d.VisitDate]++
		want := counters[d.VisitDate]
		if d.OrderIndex == want {
			continue
		}
		d.OrderIndex = want
		if err := s.storage.DestinationStorage().UpdateDestination(ctx, d); err != nil {
			return fmt.Errorf("failed to renumber destination %s: %w", d.ID, err)
		}
	}
	return nil
}

// touchTrip bumps the trip's updated timestamp
func (s *Service) touchTrip(ctx context.Context, trip *models.Trip) {
	trip.UpdatedAt = time.Now()
	if err := s.storage.TripStorage().UpdateTrip(ctx, trip); err != nil {
		s.logger.Warn().Err(err).Str("trip_id", trip.ID).Msg("Failed to touch trip")
	}
}

func (s *Service) publishDestinationsChanged(ctx context.Context, tripID string) {
	if s.events == nil {
		return
	}
	event := interfaces.Event{
		Type:    interfaces.EventDestinationsChanged,
		Payload: map[string]interface{}{"trip_id": tripID},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to publish destinations change")
	}
}

func (s *Service) publishTripChanged(ctx context.Context, tripID string) {
	if s.events == nil {
		return
	}
	event := interfaces.Event{
		Type:    interfaces.EventTripChanged,
		Payload: map[string]interface{}{"trip_id": tripID},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to publish trip change")
	}
}
