package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
	"github.com/ternarybob/voyager/internal/services/events"
	badgerstore "github.com/ternarybob/voyager/internal/storage/badger"
)

func newTestBridge(t *testing.T) (*Bridge, interfaces.StorageManager, interfaces.EventService) {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	eventService := events.NewService(logger)
	t.Cleanup(func() { eventService.Close() })

	bridge := NewBridge(manager, eventService, logger)
	t.Cleanup(func() { bridge.Close() })

	return bridge, manager, eventService
}

func seedTrip(t *testing.T, manager interfaces.StorageManager, tripID string) {
	t.Helper()
	trip := &models.Trip{ID: tripID, Name: "Bangkok", TotalDays: 2}
	if err := manager.TripStorage().CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("Failed to seed trip: %v", err)
	}
}

func destinationsChanged(tripID string) interfaces.Event {
	return interfaces.Event{
		Type:    interfaces.EventDestinationsChanged,
		Payload: map[string]interface{}{"trip_id": tripID},
	}
}

func TestBridgeReloadsOnDestinationsChange(t *testing.T) {
	bridge, manager, eventService := newTestBridge(t)
	ctx := context.Background()
	seedTrip(t, manager, "trip-1")

	dest := &models.Destination{
		ID:         "dest-1",
		TripID:     "trip-1",
		Name:       "Wat Pho",
		VisitDate:  1,
		OrderIndex: 1,
	}
	if err := manager.DestinationStorage().InsertDestination(ctx, dest); err != nil {
		t.Fatalf("Failed to seed destination: %v", err)
	}

	got := make(chan *Snapshot, 1)
	err := bridge.Subscribe("trip-1", Handlers{
		OnDestinationsChange: func(s *Snapshot) { got <- s },
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := eventService.PublishSync(ctx, destinationsChanged("trip-1")); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	select {
	case snapshot := <-got:
		if snapshot.Trip == nil || snapshot.Trip.ID != "trip-1" {
			t.Errorf("Expected full trip in snapshot, got %+v", snapshot.Trip)
		}
		if len(snapshot.Destinations) != 1 || snapshot.Destinations[0].Name != "Wat Pho" {
			t.Errorf("Expected full destination list, got %+v", snapshot.Destinations)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for snapshot")
	}
}

func TestBridgeFiltersOtherTrips(t *testing.T) {
	bridge, manager, eventService := newTestBridge(t)
	ctx := context.Background()
	seedTrip(t, manager, "trip-1")
	seedTrip(t, manager, "trip-2")

	got := make(chan *Snapshot, 1)
	if err := bridge.Subscribe("trip-1", Handlers{
		OnDestinationsChange: func(s *Snapshot) { got <- s },
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := eventService.PublishSync(ctx, destinationsChanged("trip-2")); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	select {
	case <-got:
		t.Fatal("Expected no snapshot for another trip's event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridgeResubscribeReplacesHandlers(t *testing.T) {
	bridge, manager, eventService := newTestBridge(t)
	ctx := context.Background()
	seedTrip(t, manager, "trip-1")

	firstHits := make(chan struct{}, 10)
	secondHits := make(chan struct{}, 10)

	if err := bridge.Subscribe("trip-1", Handlers{
		OnDestinationsChange: func(s *Snapshot) { firstHits <- struct{}{} },
	}); err != nil {
		t.Fatalf("First subscribe failed: %v", err)
	}
	if err := bridge.Subscribe("trip-1", Handlers{
		OnDestinationsChange: func(s *Snapshot) { secondHits <- struct{}{} },
	}); err != nil {
		t.Fatalf("Second subscribe failed: %v", err)
	}

	if err := eventService.PublishSync(ctx, destinationsChanged("trip-1")); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	select {
	case <-secondHits:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for replacement handler")
	}
	select {
	case <-firstHits:
		t.Fatal("Expected original handler to be torn down on resubscribe")
	default:
	}
}

func TestBridgeUnsubscribeStopsDelivery(t *testing.T) {
	bridge, manager, eventService := newTestBridge(t)
	ctx := context.Background()
	seedTrip(t, manager, "trip-1")

	got := make(chan *Snapshot, 1)
	if err := bridge.Subscribe("trip-1", Handlers{
		OnDestinationsChange: func(s *Snapshot) { got <- s },
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := bridge.Unsubscribe("trip-1"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if err := eventService.PublishSync(ctx, destinationsChanged("trip-1")); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	select {
	case <-got:
		t.Fatal("Expected no delivery after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridgeUnsubscribeUnknownTrip(t *testing.T) {
	bridge, _, _ := newTestBridge(t)
	if err := bridge.Unsubscribe("never-subscribed"); err == nil {
		t.Error("Expected error for unknown trip")
	}
}

func TestBridgeReloadErrorDelivered(t *testing.T) {
	bridge, _, eventService := newTestBridge(t)
	ctx := context.Background()

	// Trip does not exist, so the reload fails
	errs := make(chan error, 1)
	if err := bridge.Subscribe("missing-trip", Handlers{
		OnDestinationsChange: func(s *Snapshot) { t.Error("Unexpected snapshot") },
		OnError:              func(err error) { errs <- err },
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := eventService.PublishSync(ctx, destinationsChanged("missing-trip")); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	select {
	case err := <-errs:
		if err == nil {
			t.Error("Expected a reload error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reload error")
	}
}
