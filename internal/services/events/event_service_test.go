package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/interfaces"
)

func TestSubscribePublishSync(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	defer svc.Close()

	var mu sync.Mutex
	var received []interfaces.Event

	_, err := svc.Subscribe(interfaces.EventDestinationsChanged, func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	event := interfaces.Event{
		Type:    interfaces.EventDestinationsChanged,
		Payload: map[string]string{"trip_id": "trip-1"},
	}
	if err := svc.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(received))
	}
	if received[0].Type != interfaces.EventDestinationsChanged {
		t.Errorf("Expected destinations_changed, got %s", received[0].Type)
	}
}

func TestUnsubscribeByToken(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	defer svc.Close()

	var mu sync.Mutex
	countA, countB := 0, 0

	tokenA, err := svc.Subscribe(interfaces.EventTripChanged, func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		countA++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe A: %v", err)
	}

	_, err = svc.Subscribe(interfaces.EventTripChanged, func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		countB++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe B: %v", err)
	}

	event := interfaces.Event{Type: interfaces.EventTripChanged}
	if err := svc.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	if err := svc.Unsubscribe(interfaces.EventTripChanged, tokenA); err != nil {
		t.Fatalf("Failed to unsubscribe: %v", err)
	}

	if err := svc.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("Failed to publish after unsubscribe: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if countA != 1 {
		t.Errorf("Expected handler A to fire once, got %d", countA)
	}
	if countB != 2 {
		t.Errorf("Expected handler B to fire twice, got %d", countB)
	}
}

func TestUnsubscribeUnknownToken(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	defer svc.Close()

	if err := svc.Unsubscribe(interfaces.EventTripChanged, 42); err == nil {
		t.Error("Expected error for unknown token")
	}
}

func TestPublishAsync(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	defer svc.Close()

	done := make(chan struct{})
	_, err := svc.Subscribe(interfaces.EventMessageAppended, func(ctx context.Context, event interfaces.Event) error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventMessageAppended}); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handler not invoked within timeout")
	}
}
