package resolver

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

// fakeCacheStorage is an in-memory PlaceCacheStorage
type fakeCacheStorage struct {
	mu      sync.Mutex
	entries map[string]*models.CachedPlace
}

func newFakeCacheStorage() *fakeCacheStorage {
	return &fakeCacheStorage{entries: make(map[string]*models.CachedPlace)}
}

func (f *fakeCacheStorage) Upsert(ctx context.Context, place *models.CachedPlace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[place.PlaceID] = place
	return nil
}

func (f *fakeCacheStorage) GetByPlaceID(ctx context.Context, placeID string) (*models.CachedPlace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.entries[placeID]; ok {
		return p, nil
	}
	return nil, interfaces.ErrCacheMiss
}

func (f *fakeCacheStorage) FindByName(ctx context.Context, name string, hint string, now time.Time) ([]*models.CachedPlace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []*models.CachedPlace
	query := strings.ToLower(name)
	hintQuery := strings.ToLower(hint)
	for _, p := range f.entries {
		if p.Expired(now) {
			continue
		}
		cached := strings.ToLower(p.Name)
		if cached != query && !strings.HasPrefix(cached, query+" ") {
			continue
		}
		if hintQuery != "" && !strings.Contains(strings.ToLower(p.FormattedAddress), hintQuery) {
			continue
		}
		matches = append(matches, p)
	}
	return matches, nil
}

func (f *fakeCacheStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for id, p := range f.entries {
		if p.Expired(now) {
			delete(f.entries, id)
			removed++
		}
	}
	return removed, nil
}

// fakePlacesService returns canned results and counts calls
type fakePlacesService struct {
	mu      sync.Mutex
	calls   int
	results map[string][]*models.ResolvedPlace
}

func (f *fakePlacesService) SearchPlaces(ctx context.Context, req *interfaces.PlacesSearchRequest) ([]*models.ResolvedPlace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for name, results := range f.results {
		if strings.Contains(strings.ToLower(req.Query), strings.ToLower(name)) {
			return results, nil
		}
	}
	return nil, nil
}

func (f *fakePlacesService) GetPlaceDetails(ctx context.Context, placeID string) (*models.ResolvedPlace, error) {
	return nil, interfaces.ErrCacheMiss
}

func (f *fakePlacesService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testResolver(places *fakePlacesService, cache *fakeCacheStorage) *Service {
	cfg := &common.ResolverConfig{
		CacheTTL:      30 * 24 * time.Hour,
		HotCacheTTL:   10 * time.Minute,
		MaxConcurrent: 4,
	}
	return NewService(cfg, cache, places, arbor.NewLogger())
}

func TestResolveProviderThenCached(t *testing.T) {
	cache := newFakeCacheStorage()
	provider := &fakePlacesService{results: map[string][]*models.ResolvedPlace{
		"wat pho": {
			{PlaceID: "p1", Name: "Wat Pho", Rating: 4.7, UserRatingsTotal: 50000, Latitude: 13.7, Longitude: 100.5},
		},
	}}
	svc := testResolver(provider, cache)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "Wat Pho", "")
	if err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}
	if first.PlaceID != "p1" {
		t.Errorf("Expected p1, got %s", first.PlaceID)
	}
	if provider.callCount() != 1 {
		t.Fatalf("Expected 1 provider call, got %d", provider.callCount())
	}

	// Second resolve must hit a cache tier, not the provider
	second, err := svc.Resolve(ctx, "Wat Pho", "")
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if second.PlaceID != "p1" {
		t.Errorf("Expected p1, got %s", second.PlaceID)
	}
	if provider.callCount() != 1 {
		t.Errorf("Expected cache hit on second resolve, provider called %d times", provider.callCount())
	}

	// Durable tier has exactly one row keyed by place ID
	if _, err := cache.GetByPlaceID(ctx, "p1"); err != nil {
		t.Errorf("Expected durable cache entry for p1: %v", err)
	}
}

func TestResolveDurableTierSurvivesHotEviction(t *testing.T) {
	cache := newFakeCacheStorage()
	cache.Upsert(context.Background(), models.NewCachedPlace(&models.ResolvedPlace{
		PlaceID: "p9", Name: "Doi Suthep", Rating: 4.8,
	}, time.Hour, time.Now()))

	provider := &fakePlacesService{}
	svc := testResolver(provider, cache)

	place, err := svc.Resolve(context.Background(), "Doi Suthep", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if place.PlaceID != "p9" {
		t.Errorf("Expected p9 from durable cache, got %s", place.PlaceID)
	}
	if provider.callCount() != 0 {
		t.Errorf("Expected no provider calls, got %d", provider.callCount())
	}
}

func TestResolveExpiredEntryGoesToProvider(t *testing.T) {
	cache := newFakeCacheStorage()
	cache.Upsert(context.Background(), models.NewCachedPlace(&models.ResolvedPlace{
		PlaceID: "old", Name: "Night Bazaar",
	}, -time.Hour, time.Now()))

	provider := &fakePlacesService{results: map[string][]*models.ResolvedPlace{
		"night bazaar": {
			{PlaceID: "new", Name: "Night Bazaar", Rating: 4.2},
		},
	}}
	svc := testResolver(provider, cache)

	place, err := svc.Resolve(context.Background(), "Night Bazaar", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if place.PlaceID != "new" {
		t.Errorf("Expected fresh provider result, got %s", place.PlaceID)
	}
	if provider.callCount() != 1 {
		t.Errorf("Expected 1 provider call, got %d", provider.callCount())
	}
}

func TestResolveNotFound(t *testing.T) {
	svc := testResolver(&fakePlacesService{}, newFakeCacheStorage())

	_, err := svc.Resolve(context.Background(), "Totally Unknown Place", "")
	if err == nil {
		t.Fatal("Expected error for unknown place")
	}
	if !strings.Contains(err.Error(), "place not found") {
		t.Errorf("Expected place not found error, got %v", err)
	}
}

func TestResolveDistinguishesLocationHints(t *testing.T) {
	cache := newFakeCacheStorage()
	provider := &fakePlacesService{results: map[string][]*models.ResolvedPlace{
		"springfield illinois": {
			{PlaceID: "il-1", Name: "Springfield", FormattedAddress: "Springfield, Illinois, USA", Rating: 4.1},
		},
		"springfield missouri": {
			{PlaceID: "mo-1", Name: "Springfield", FormattedAddress: "Springfield, Missouri, USA", Rating: 4.0},
		},
	}}
	svc := testResolver(provider, cache)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "Springfield", "Illinois")
	if err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}
	if first.PlaceID != "il-1" {
		t.Errorf("Expected il-1, got %s", first.PlaceID)
	}

	// A different hint must not be answered from either cache tier
	second, err := svc.Resolve(ctx, "Springfield", "Missouri")
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if second.PlaceID != "mo-1" {
		t.Errorf("Expected mo-1 for the Missouri hint, got %s", second.PlaceID)
	}
	if provider.callCount() != 2 {
		t.Errorf("Expected 2 provider calls, got %d", provider.callCount())
	}

	// The same name and hint still hits the cache
	again, err := svc.Resolve(ctx, "Springfield", "Illinois")
	if err != nil {
		t.Fatalf("Repeat resolve failed: %v", err)
	}
	if again.PlaceID != "il-1" || provider.callCount() != 2 {
		t.Errorf("Expected cached il-1, got %s with %d calls", again.PlaceID, provider.callCount())
	}
}

func TestResolveLongerNameSkipsShorterCachedEntry(t *testing.T) {
	cache := newFakeCacheStorage()
	cache.Upsert(context.Background(), models.NewCachedPlace(&models.ResolvedPlace{
		PlaceID: "temple-1", Name: "Grand Palace", FormattedAddress: "Bangkok, Thailand", Rating: 4.8,
	}, time.Hour, time.Now()))

	provider := &fakePlacesService{results: map[string][]*models.ResolvedPlace{
		"grand palace hotel": {
			{PlaceID: "hotel-1", Name: "Grand Palace Hotel", FormattedAddress: "Bangkok, Thailand", Rating: 4.0},
		},
	}}
	svc := testResolver(provider, cache)

	place, err := svc.Resolve(context.Background(), "Grand Palace Hotel", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if place.PlaceID != "hotel-1" {
		t.Errorf("Expected the hotel from the provider, got %s", place.PlaceID)
	}
	if provider.callCount() != 1 {
		t.Errorf("Expected 1 provider call, got %d", provider.callCount())
	}
}

func TestRankResults(t *testing.T) {
	results := []*models.ResolvedPlace{
		{PlaceID: "low", Rating: 3.9, UserRatingsTotal: 100},
		{PlaceID: "popular", Rating: 4.5, UserRatingsTotal: 9000},
		{PlaceID: "niche", Rating: 4.5, UserRatingsTotal: 40},
	}

	RankResults(results)

	want := []string{"popular", "niche", "low"}
	for i, id := range want {
		if results[i].PlaceID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, results[i].PlaceID)
		}
	}
}

func TestResolveAllPreservesOrderAndFailures(t *testing.T) {
	cache := newFakeCacheStorage()
	provider := &fakePlacesService{results: map[string][]*models.ResolvedPlace{
		"wat pho":      {{PlaceID: "p1", Name: "Wat Pho", Rating: 4.7}},
		"grand palace": {{PlaceID: "p2", Name: "Grand Palace", Rating: 4.6}},
	}}
	svc := testResolver(provider, cache)

	inputs := []models.DestinationInput{
		{Name: "Wat Pho"},
		{Name: "Nonexistent Spot"},
		{Name: "Grand Palace"},
	}

	results, err := svc.ResolveAll(context.Background(), inputs)
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	if results[0].Err != nil || results[0].Place.PlaceID != "p1" {
		t.Errorf("Expected p1 at position 0, got %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("Expected failure at position 1")
	}
	if results[2].Err != nil || results[2].Place.PlaceID != "p2" {
		t.Errorf("Expected p2 at position 2, got %+v", results[2])
	}
}
