package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/semaphore"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

// ErrPlaceNotFound is returned when neither cache tier nor the provider
// yields a usable place for a name.
var ErrPlaceNotFound = errors.New("place not found")

// Resolution pairs one requested destination with its outcome. Either
// Place or Err is set, never both.
type Resolution struct {
	Input models.DestinationInput
	Place *models.ResolvedPlace
	Err   error
}

// Service resolves free-text place names to canonical place records.
// Lookups go hot tier, durable tier, then provider; every provider hit is
// written back through both tiers keyed by the provider place ID.
type Service struct {
	cacheStorage interfaces.PlaceCacheStorage
	placesAPI    interfaces.PlacesService
	hot          *gocache.Cache
	sem          *semaphore.Weighted
	cacheTTL     time.Duration
	logger       arbor.ILogger
}

// NewService creates a new place resolver
func NewService(
	cfg *common.ResolverConfig,
	cacheStorage interfaces.PlaceCacheStorage,
	placesAPI interfaces.PlacesService,
	logger arbor.ILogger,
) *Service {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Service{
		cacheStorage: cacheStorage,
		placesAPI:    placesAPI,
		hot:          gocache.New(cfg.HotCacheTTL, 2*cfg.HotCacheTTL),
		sem:          semaphore.NewWeighted(int64(maxConcurrent)),
		cacheTTL:     cfg.CacheTTL,
		logger:       logger,
	}
}

// hotKey normalizes a name plus hint for hot tier lookup. The hint is
// part of the key so the same name under different hints cannot share
// an entry.
func hotKey(name string, hint string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(hint))
}

// Resolve maps a single name (plus optional address hint) to a place.
// The hint scopes both cache tiers and widens the provider query, so
// "Springfield" in one region never answers for another.
func (s *Service) Resolve(ctx context.Context, name string, hintAddress string) (*models.ResolvedPlace, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("place name cannot be empty")
	}

	key := hotKey(trimmed, hintAddress)
	if cached, ok := s.hot.Get(key); ok {
		s.logger.Debug().Str("name", trimmed).Msg("Hot cache hit")
		return cached.(*models.ResolvedPlace), nil
	}

	now := time.Now()
	entries, err := s.cacheStorage.FindByName(ctx, trimmed, hintAddress, now)
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	if len(entries) > 0 {
		resolved := entries[0].ToResolved()
		s.hot.SetDefault(key, resolved)
		s.logger.Debug().Str("name", trimmed).Str("place_id", resolved.PlaceID).Msg("Durable cache hit")
		return resolved, nil
	}

	resolved, err := s.searchProvider(ctx, trimmed, hintAddress)
	if err != nil {
		return nil, err
	}

	if err := s.cacheStorage.Upsert(ctx, models.NewCachedPlace(resolved, s.cacheTTL, now)); err != nil {
		// A failed cache write must not fail the resolution
		s.logger.Warn().Err(err).Str("place_id", resolved.PlaceID).Msg("Failed to write place cache entry")
	}
	s.hot.SetDefault(key, resolved)

	return resolved, nil
}

// searchProvider queries the places API and picks the best-ranked result
func (s *Service) searchProvider(ctx context.Context, name string, hintAddress string) (*models.ResolvedPlace, error) {
	query := name
	if hintAddress != "" {
		query = fmt.Sprintf("%s %s", name, hintAddress)
	}

	results, err := s.placesAPI.SearchPlaces(ctx, &interfaces.PlacesSearchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("provider search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPlaceNotFound, name)
	}

	RankResults(results)

	s.logger.Debug().
		Str("name", name).
		Str("place_id", results[0].PlaceID).
		Float64("rating", results[0].Rating).
		Int("candidates", len(results)).
		Msg("Resolved place via provider")

	return results[0], nil
}

// RankResults orders candidates by rating descending, then by review
// volume descending. Order among full ties is preserved.
func RankResults(results []*models.ResolvedPlace) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Rating != results[j].Rating {
			return results[i].Rating > results[j].Rating
		}
		return results[i].UserRatingsTotal > results[j].UserRatingsTotal
	})
}

// ResolveAll resolves a batch of destination inputs concurrently with a
// bounded fan-out. The returned slice preserves input order; failed
// entries carry their error rather than halting the batch.
func (s *Service) ResolveAll(ctx context.Context, inputs []models.DestinationInput) ([]Resolution, error) {
	results := make([]Resolution, len(inputs))

	var wg sync.WaitGroup
	for i := range inputs {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("resolution aborted: %w", err)
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer s.sem.Release(1)
			input := inputs[idx]
			place, err := s.Resolve(ctx, input.Name, input.HintAddress)
			results[idx] = Resolution{Input: input, Place: place, Err: err}
		}(i)
	}
	wg.Wait()

	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn().
			Int("failed", failed).
			Int("total", len(inputs)).
			Msg("Batch resolution completed with failures")
	}

	return results, nil
}
