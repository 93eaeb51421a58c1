package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

// PlaceCacheStorage implements the PlaceCacheStorage interface for Badger
type PlaceCacheStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPlaceCacheStorage creates a new PlaceCacheStorage instance
func NewPlaceCacheStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PlaceCacheStorage {
	return &PlaceCacheStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces a cache entry keyed by PlaceID
func (s *PlaceCacheStorage) Upsert(ctx context.Context, place *models.CachedPlace) error {
	if place.PlaceID == "" {
		return fmt.Errorf("cached place requires a place_id")
	}

	if err := s.db.Store().Upsert(place.PlaceID, place); err != nil {
		return fmt.Errorf("failed to upsert cached place: %w", err)
	}
	return nil
}

// GetByPlaceID returns the entry for a place ID regardless of expiry
func (s *PlaceCacheStorage) GetByPlaceID(ctx context.Context, placeID string) (*models.CachedPlace, error) {
	var place models.CachedPlace
	err := s.db.Store().Get(placeID, &place)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached place: %w", err)
	}
	return &place, nil
}

// FindByName returns unexpired entries whose name matches the query
// case-insensitively, best match first. A cached name matches when it
// equals the query or extends it ("Grand Palace" finds "Grand Palace
// Hotel"); the reverse direction is never a match, so a longer query
// cannot land on a shorter cached name for a different place. A
// non-empty hint restricts matches to entries whose formatted address
// contains it.
func (s *PlaceCacheStorage) FindByName(ctx context.Context, name string, hint string, now time.Time) ([]*models.CachedPlace, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil, nil
	}
	hintQuery := strings.ToLower(strings.TrimSpace(hint))

	var all []*models.CachedPlace
	err := s.db.Store().Find(&all, badgerhold.Where("PlaceID").Ne(""))
	if err != nil {
		return nil, fmt.Errorf("failed to scan place cache: %w", err)
	}

	var matches []*models.CachedPlace
	for _, place := range all {
		if place.Expired(now) {
			continue
		}
		cached := strings.ToLower(place.Name)
		if cached != query && !strings.HasPrefix(cached, query+" ") {
			continue
		}
		if hintQuery != "" && !strings.Contains(strings.ToLower(place.FormattedAddress), hintQuery) {
			continue
		}
		matches = append(matches, place)
	}

	// Exact matches first, then higher-rated entries
	sort.SliceStable(matches, func(i, j int) bool {
		iExact := strings.ToLower(matches[i].Name) == query
		jExact := strings.ToLower(matches[j].Name) == query
		if iExact != jExact {
			return iExact
		}
		if matches[i].Rating != matches[j].Rating {
			return matches[i].Rating > matches[j].Rating
		}
		return matches[i].UserRatingsTotal > matches[j].UserRatingsTotal
	})

	return matches, nil
}

// DeleteExpired removes entries whose expiry precedes now
func (s *PlaceCacheStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var all []*models.CachedPlace
	err := s.db.Store().Find(&all, badgerhold.Where("PlaceID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to scan place cache: %w", err)
	}

	removed := 0
	for _, place := range all {
		if !place.Expired(now) {
			continue
		}
		if err := s.db.Store().Delete(place.PlaceID, &models.CachedPlace{}); err != nil {
			s.logger.Warn().Err(err).Str("place_id", place.PlaceID).Msg("Failed to delete expired cache entry")
			continue
		}
		removed++
	}

	return removed, nil
}
