package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func TestTripCRUD(t *testing.T) {
	db := openTestDB(t)
	storage := NewTripStorage(db, arbor.NewLogger())
	ctx := context.Background()

	trip := &models.Trip{
		ID:        "trip-1",
		Name:      "Chiang Mai",
		TotalDays: 3,
	}
	if err := storage.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("Failed to create trip: %v", err)
	}

	got, err := storage.GetTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("Failed to get trip: %v", err)
	}
	if got.Name != "Chiang Mai" {
		t.Errorf("Expected name 'Chiang Mai', got %q", got.Name)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set on create")
	}

	got.TotalDays = 5
	if err := storage.UpdateTrip(ctx, got); err != nil {
		t.Fatalf("Failed to update trip: %v", err)
	}

	updated, err := storage.GetTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("Failed to get updated trip: %v", err)
	}
	if updated.TotalDays != 5 {
		t.Errorf("Expected 5 total days, got %d", updated.TotalDays)
	}

	if err := storage.DeleteTrip(ctx, "trip-1"); err != nil {
		t.Fatalf("Failed to delete trip: %v", err)
	}
	if _, err := storage.GetTrip(ctx, "trip-1"); err != interfaces.ErrTripNotFound {
		t.Errorf("Expected ErrTripNotFound, got %v", err)
	}
}

func TestTripNotFound(t *testing.T) {
	db := openTestDB(t)
	storage := NewTripStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if _, err := storage.GetTrip(ctx, "missing"); err != interfaces.ErrTripNotFound {
		t.Errorf("Expected ErrTripNotFound, got %v", err)
	}
	if err := storage.UpdateTrip(ctx, &models.Trip{ID: "missing"}); err != interfaces.ErrTripNotFound {
		t.Errorf("Expected ErrTripNotFound on update, got %v", err)
	}
	if err := storage.DeleteTrip(ctx, "missing"); err != interfaces.ErrTripNotFound {
		t.Errorf("Expected ErrTripNotFound on delete, got %v", err)
	}
}

func TestDestinationListOrdering(t *testing.T) {
	db := openTestDB(t)
	storage := NewDestinationStorage(db, arbor.NewLogger())
	ctx := context.Background()

	// Insert out of order to verify (visit_date, order_index) sorting
	dests := []*models.Destination{
		{ID: "d3", TripID: "trip-1", Name: "Night Bazaar", VisitDate: 2, OrderIndex: 1},
		{ID: "d1", TripID: "trip-1", Name: "Wat Phra Singh", VisitDate: 1, OrderIndex: 2},
		{ID: "d2", TripID: "trip-1", Name: "Doi Suthep", VisitDate: 1, OrderIndex: 1},
		{ID: "d4", TripID: "trip-2", Name: "Grand Palace", VisitDate: 1, OrderIndex: 1},
	}
	for _, d := range dests {
		if err := storage.InsertDestination(ctx, d); err != nil {
			t.Fatalf("Failed to insert %s: %v", d.ID, err)
		}
	}

	got, err := storage.ListByTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("Failed to list destinations: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 destinations, got %d", len(got))
	}

	wantOrder := []string{"d2", "d1", "d3"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestDestinationFindByNameExact(t *testing.T) {
	db := openTestDB(t)
	storage := NewDestinationStorage(db, arbor.NewLogger())
	ctx := context.Background()

	dests := []*models.Destination{
		{ID: "d1", TripID: "trip-1", Name: "Wat Arun", VisitDate: 1, OrderIndex: 1},
		{ID: "d2", TripID: "trip-1", Name: "Wat Arun", VisitDate: 2, OrderIndex: 1},
		{ID: "d3", TripID: "trip-1", Name: "wat arun", VisitDate: 3, OrderIndex: 1},
		{ID: "d4", TripID: "trip-2", Name: "Wat Arun", VisitDate: 1, OrderIndex: 1},
	}
	for _, d := range dests {
		if err := storage.InsertDestination(ctx, d); err != nil {
			t.Fatalf("Failed to insert %s: %v", d.ID, err)
		}
	}

	// Exact match only, scoped to the trip; the lowercase variant stays
	got, err := storage.FindByName(ctx, "trip-1", "Wat Arun")
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(got))
	}
}

func TestDestinationDeleteByTrip(t *testing.T) {
	db := openTestDB(t)
	storage := NewDestinationStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for _, d := range []*models.Destination{
		{ID: "d1", TripID: "trip-1", Name: "A", VisitDate: 1, OrderIndex: 1},
		{ID: "d2", TripID: "trip-1", Name: "B", VisitDate: 1, OrderIndex: 2},
		{ID: "d3", TripID: "trip-2", Name: "C", VisitDate: 1, OrderIndex: 1},
	} {
		if err := storage.InsertDestination(ctx, d); err != nil {
			t.Fatalf("Failed to insert %s: %v", d.ID, err)
		}
	}

	if err := storage.DeleteByTrip(ctx, "trip-1"); err != nil {
		t.Fatalf("Failed to delete by trip: %v", err)
	}

	remaining, err := storage.ListByTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("Failed to list destinations: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected 0 destinations for trip-1, got %d", len(remaining))
	}

	other, err := storage.ListByTrip(ctx, "trip-2")
	if err != nil {
		t.Fatalf("Failed to list destinations: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("Expected trip-2 to be untouched, got %d destinations", len(other))
	}
}

func TestMessageChronologicalOrder(t *testing.T) {
	db := openTestDB(t)
	storage := NewMessageStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	msgs := []*models.ChatMessage{
		{ID: "m2", TripID: "trip-1", Role: "assistant", Content: "second", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "m1", TripID: "trip-1", Role: "user", Content: "first", CreatedAt: base.Add(time.Minute)},
		{ID: "m3", TripID: "trip-1", Role: "user", Content: "third", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, m := range msgs {
		if err := storage.AppendMessage(ctx, m); err != nil {
			t.Fatalf("Failed to append %s: %v", m.ID, err)
		}
	}

	got, err := storage.ListByTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("Failed to list messages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestPlaceCacheUpsertIdempotent(t *testing.T) {
	db := openTestDB(t)
	storage := NewPlaceCacheStorage(db, arbor.NewLogger())
	ctx := context.Background()
	now := time.Now()

	place := models.NewCachedPlace(&models.ResolvedPlace{
		PlaceID: "ChIJabc",
		Name:    "Wat Pho",
		Rating:  4.7,
	}, 30*24*time.Hour, now)

	if err := storage.Upsert(ctx, place); err != nil {
		t.Fatalf("Failed first upsert: %v", err)
	}

	// Second write for the same place ID replaces, never duplicates
	place.Rating = 4.8
	if err := storage.Upsert(ctx, place); err != nil {
		t.Fatalf("Failed second upsert: %v", err)
	}

	got, err := storage.GetByPlaceID(ctx, "ChIJabc")
	if err != nil {
		t.Fatalf("Failed to get cached place: %v", err)
	}
	if got.Rating != 4.8 {
		t.Errorf("Expected rating 4.8 after upsert, got %v", got.Rating)
	}

	all, err := storage.FindByName(ctx, "Wat Pho", "", now)
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected a single cache row, got %d", len(all))
	}
}

func TestPlaceCacheExpiry(t *testing.T) {
	db := openTestDB(t)
	storage := NewPlaceCacheStorage(db, arbor.NewLogger())
	ctx := context.Background()
	now := time.Now()

	fresh := models.NewCachedPlace(&models.ResolvedPlace{PlaceID: "p-fresh", Name: "Night Market"}, time.Hour, now)
	stale := models.NewCachedPlace(&models.ResolvedPlace{PlaceID: "p-stale", Name: "Night Market Annex"}, -time.Hour, now)

	for _, p := range []*models.CachedPlace{fresh, stale} {
		if err := storage.Upsert(ctx, p); err != nil {
			t.Fatalf("Failed to upsert %s: %v", p.PlaceID, err)
		}
	}

	// Expired rows are invisible to name lookups
	got, err := storage.FindByName(ctx, "Night Market", "", now)
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if len(got) != 1 || got[0].PlaceID != "p-fresh" {
		t.Fatalf("Expected only the fresh entry, got %d rows", len(got))
	}

	// But still readable by exact place ID
	if _, err := storage.GetByPlaceID(ctx, "p-stale"); err != nil {
		t.Errorf("Expected stale entry readable by place ID, got %v", err)
	}

	removed, err := storage.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("Failed to delete expired: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 expired row removed, got %d", removed)
	}

	if _, err := storage.GetByPlaceID(ctx, "p-stale"); err != interfaces.ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after sweep, got %v", err)
	}
	if _, err := storage.GetByPlaceID(ctx, "p-fresh"); err != nil {
		t.Errorf("Expected fresh entry to survive sweep, got %v", err)
	}
}

func TestPlaceCacheFindByNameMatching(t *testing.T) {
	db := openTestDB(t)
	storage := NewPlaceCacheStorage(db, arbor.NewLogger())
	ctx := context.Background()
	now := time.Now()

	seed := []*models.ResolvedPlace{
		{PlaceID: "temple-1", Name: "Grand Palace", FormattedAddress: "Bangkok, Thailand", Rating: 4.8},
		{PlaceID: "hotel-1", Name: "Grand Palace Hotel", FormattedAddress: "Bangkok, Thailand", Rating: 4.1},
		{PlaceID: "il-1", Name: "Springfield", FormattedAddress: "Springfield, Illinois, USA", Rating: 4.2},
		{PlaceID: "mo-1", Name: "Springfield", FormattedAddress: "Springfield, Missouri, USA", Rating: 4.0},
	}
	for _, p := range seed {
		if err := storage.Upsert(ctx, models.NewCachedPlace(p, time.Hour, now)); err != nil {
			t.Fatalf("Failed to upsert %s: %v", p.PlaceID, err)
		}
	}

	// Exact match sorts before the longer name it prefixes
	got, err := storage.FindByName(ctx, "grand palace", "", now)
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if len(got) != 2 || got[0].PlaceID != "temple-1" {
		t.Fatalf("Expected temple-1 first of 2 rows, got %d rows", len(got))
	}

	// A longer query never lands on a shorter cached name
	got, err = storage.FindByName(ctx, "Grand Palace Hotel", "", now)
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if len(got) != 1 || got[0].PlaceID != "hotel-1" {
		t.Fatalf("Expected only hotel-1, got %d rows", len(got))
	}

	// Word-boundary prefix only: "Grand Pal" must not match anything
	got, err = storage.FindByName(ctx, "Grand Pal", "", now)
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no rows for a partial word, got %d", len(got))
	}

	// The hint scopes same-named entries by formatted address
	got, err = storage.FindByName(ctx, "Springfield", "Missouri", now)
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if len(got) != 1 || got[0].PlaceID != "mo-1" {
		t.Fatalf("Expected only mo-1 for the Missouri hint, got %d rows", len(got))
	}
}

func TestKVStorageCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	storage := NewKVStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if err := storage.Set(ctx, "Gemini_API_Key", "secret-1", "llm key"); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}

	value, err := storage.Get(ctx, "gemini_api_key")
	if err != nil {
		t.Fatalf("Failed to get key: %v", err)
	}
	if value != "secret-1" {
		t.Errorf("Expected 'secret-1', got %q", value)
	}

	if _, err := storage.Get(ctx, "missing"); err != interfaces.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}

	if err := storage.Delete(ctx, "GEMINI_API_KEY"); err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}
	if _, err := storage.Get(ctx, "gemini_api_key"); err != interfaces.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}
}
