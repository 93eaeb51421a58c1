package assistant

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/interfaces"
)

// State is the assistant's processing state for one trip conversation.
type State string

const (
	StateIdle               State = "idle"
	StateAnalyzing          State = "analyzing"
	StatePlanning           State = "planning"
	StateAddingDestinations State = "adding_destinations"
	StateCompleted          State = "completed"
	StateError              State = "error"
)

// allowedTransitions encodes the forward-only state machine. Terminal
// states reset to idle before the next turn.
var allowedTransitions = map[State][]State{
	StateIdle:               {StateAnalyzing},
	StateAnalyzing:          {StatePlanning, StateAddingDestinations, StateCompleted, StateError},
	StatePlanning:           {StateAddingDestinations, StateCompleted, StateError},
	StateAddingDestinations: {StateCompleted, StateError},
	StateCompleted:          {StateIdle},
	StateError:              {StateIdle},
}

// canTransition reports whether from -> to is a legal step
func canTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateTracker holds per-trip processing state and publishes every
// transition so connected clients can render progress.
type StateTracker struct {
	mu     sync.Mutex
	states map[string]State
	events interfaces.EventService
	logger arbor.ILogger
}

// NewStateTracker creates a new state tracker
func NewStateTracker(events interfaces.EventService, logger arbor.ILogger) *StateTracker {
	return &StateTracker{
		states: make(map[string]State),
		events: events,
		logger: logger,
	}
}

// Current returns the state for a trip, defaulting to idle
func (t *StateTracker) Current(tripID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[tripID]; ok {
		return s
	}
	return StateIdle
}

// Transition moves a trip's state forward. Illegal jumps are rejected so
// a buggy caller cannot skip or rewind the pipeline.
func (t *StateTracker) Transition(ctx context.Context, tripID string, to State) error {
	t.mu.Lock()
	from, ok := t.states[tripID]
	if !ok {
		from = StateIdle
	}

	if from == to {
		t.mu.Unlock()
		return nil
	}

	if !canTransition(from, to) {
		t.mu.Unlock()
		return fmt.Errorf("illegal state transition %s -> %s", from, to)
	}

	t.states[tripID] = to
	t.mu.Unlock()

	t.logger.Debug().
		Str("trip_id", tripID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Assistant state transition")

	t.publish(ctx, tripID, to)
	return nil
}

// Reset returns a trip to idle from a terminal state
func (t *StateTracker) Reset(ctx context.Context, tripID string) {
	t.mu.Lock()
	t.states[tripID] = StateIdle
	t.mu.Unlock()
	t.publish(ctx, tripID, StateIdle)
}

func (t *StateTracker) publish(ctx context.Context, tripID string, state State) {
	if t.events == nil {
		return
	}
	event := interfaces.Event{
		Type: interfaces.EventAssistantStateChanged,
		Payload: map[string]interface{}{
			"trip_id": tripID,
			"state":   string(state),
		},
	}
	if err := t.events.Publish(ctx, event); err != nil {
		t.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to publish state change")
	}
}
