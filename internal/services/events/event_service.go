package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/interfaces"
)

// Service implements EventService interface with pub/sub pattern.
// Handlers are tracked by token so subscribers can tear down individual
// registrations.
type Service struct {
	subscribers map[interfaces.EventType]map[int]interfaces.EventHandler
	nextToken   int
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		subscribers: make(map[interfaces.EventType]map[int]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type and returns its token
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) (int, error) {
	if handler == nil {
		return 0, fmt.Errorf("handler cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers[eventType] == nil {
		s.subscribers[eventType] = make(map[int]interfaces.EventHandler)
	}

	s.nextToken++
	token := s.nextToken
	s.subscribers[eventType][token] = handler

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("token", token).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")

	return token, nil
}

// Unsubscribe removes a previously registered handler by its token
func (s *Service) Unsubscribe(eventType interfaces.EventType, token int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handlers := s.subscribers[eventType]
	if _, ok := handlers[token]; !ok {
		return fmt.Errorf("no handler with token %d for event type: %s", token, eventType)
	}

	delete(handlers, token)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("token", token).
		Msg("Event handler unsubscribed")

	return nil
}

// Publish sends an event to all subscribers asynchronously
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	handlers := make([]interfaces.EventHandler, 0, len(s.subscribers[event.Type]))
	for _, h := range s.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	if len(handlers) == 0 {
		s.logger.Debug().
			Str("event_type", string(event.Type)).
			Msg("No subscribers for event")
		return nil
	}

	s.logger.Debug().
		Str("event_type", string(event.Type)).
		Int("subscriber_count", len(handlers)).
		Msg("Publishing event")

	for _, handler := range handlers {
		go func(h interfaces.EventHandler) {
			if err := h(ctx, event); err != nil {
				s.logger.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Event handler failed")
			}
		}(handler)
	}

	return nil
}

// PublishSync sends an event to all subscribers synchronously
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	handlers := make([]interfaces.EventHandler, 0, len(s.subscribers[event.Type]))
	for _, h := range s.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(handlers))

	for _, handler := range handlers {
		wg.Add(1)
		go func(h interfaces.EventHandler) {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				s.logger.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Event handler failed")
				errChan <- err
			}
		}(handler)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("event handlers failed: %d errors", len(errs))
	}

	return nil
}

// Close shuts down the event service
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = make(map[interfaces.EventType]map[int]interfaces.EventHandler)
	s.logger.Debug().Msg("Event service closed")

	return nil
}
