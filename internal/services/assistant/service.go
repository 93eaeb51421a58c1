package assistant

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
	"github.com/ternarybob/voyager/internal/services/resolver"
	"github.com/ternarybob/voyager/internal/services/trips"
)

// historyLimit caps how many transcript messages ride along as context
const historyLimit = 20

// TurnRequest is one user message aimed at a trip conversation. TripID
// may be empty for the first message; the turn creates the trip when the
// model asks for one.
type TurnRequest struct {
	TripID  string              `json:"trip_id,omitempty"`
	Message string              `json:"message"`
	Mode    interfaces.TurnMode `json:"mode,omitempty"`
	Model   string              `json:"model,omitempty"`
}

// TurnResult is the full outcome of one turn: the reply, what was
// mutated, and the reloaded authoritative state.
type TurnResult struct {
	TripID        string                    `json:"trip_id,omitempty"`
	Reply         string                    `json:"reply"`
	State         State                     `json:"state"`
	Trip          *models.Trip              `json:"trip,omitempty"`
	Destinations  []*models.Destination     `json:"destinations"`
	AddedCount    int                       `json:"added_count"`
	RemovedCount  int                       `json:"removed_count"`
	FailedNames   []string                  `json:"failed_names,omitempty"`
	Recommended   []models.RecommendedPlace `json:"recommended,omitempty"`
	Question      string                    `json:"question,omitempty"`
	SuggestLogin  bool                      `json:"suggest_login,omitempty"`
	ErrorCategory ErrorCategory             `json:"error_category,omitempty"`
	ErrorMessage  string                    `json:"error_message,omitempty"`
}

// Service orchestrates one conversation turn end to end: LLM call,
// action validation, place resolution, trip mutation, reload.
type Service struct {
	cfg      *common.AssistantConfig
	storage  interfaces.StorageManager
	llm      interfaces.LLMService
	resolver *resolver.Service
	trips    *trips.Service
	state    *StateTracker
	events   interfaces.EventService
	logger   arbor.ILogger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewService creates a new assistant orchestrator
func NewService(
	cfg *common.AssistantConfig,
	storage interfaces.StorageManager,
	llmService interfaces.LLMService,
	resolverService *resolver.Service,
	tripService *trips.Service,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		cfg:      cfg,
		storage:  storage,
		llm:      llmService,
		resolver: resolverService,
		trips:    tripService,
		state:    NewStateTracker(events, logger),
		events:   events,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// State returns the current processing state for a trip
func (s *Service) State(tripID string) State {
	return s.state.Current(tripID)
}

// HandleTurn processes one user message. The reply is always produced
// and always appended to the transcript, including on failure.
func (s *Service) HandleTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, newTurnError(ErrorCategoryValidation, "message cannot be empty", nil)
	}

	flightKey := req.TripID
	if flightKey == "" {
		flightKey = "_unassigned"
	}
	if !s.acquire(flightKey) {
		return nil, ErrTurnInFlight
	}
	defer s.release(flightKey)

	return s.runTurn(ctx, req), nil
}

// runTurn executes the turn pipeline; all failures funnel into the
// result so the reply path stays uniform.
func (s *Service) runTurn(ctx context.Context, req *TurnRequest) *TurnResult {
	result := &TurnResult{TripID: req.TripID, Destinations: []*models.Destination{}}

	stateKey := req.TripID
	if stateKey == "" {
		stateKey = "_unassigned"
	}

	// completed|error from the prior turn resets implicitly on the next
	// message; until then the terminal state stays observable
	if cur := s.state.Current(stateKey); cur == StateCompleted || cur == StateError {
		s.state.Reset(ctx, stateKey)
	}

	var trip *models.Trip
	if req.TripID != "" {
		var err error
		trip, err = s.storage.TripStorage().GetTrip(ctx, req.TripID)
		if err != nil {
			s.failTurn(ctx, result, stateKey, trip, req.Message,
				newTurnError(ErrorCategoryDatabase, "trip lookup failed", err))
			return result
		}
		s.appendMessage(ctx, trip.ID, "user", req.Message)
	}

	if err := s.state.Transition(ctx, stateKey, StateAnalyzing); err != nil {
		s.logger.Warn().Err(err).Str("trip_id", stateKey).Msg("State transition rejected")
	}

	turn, turnErr := s.generateAndParse(ctx, req, trip)
	if turnErr != nil {
		s.failTurn(ctx, result, stateKey, trip, req.Message, turnErr)
		return result
	}
	result.Reply = turn.Reply
	result.SuggestLogin = turn.SuggestLogin

	// A trip-creating turn moves through planning before mutation
	if trip == nil && needsTrip(turn.Actions) {
		if err := s.state.Transition(ctx, stateKey, StatePlanning); err != nil {
			s.logger.Warn().Err(err).Msg("State transition rejected")
		}

		created, err := s.createTripFromActions(ctx, req, turn.Actions)
		if err != nil {
			s.failTurn(ctx, result, stateKey, nil, req.Message,
				newTurnError(ErrorCategoryDatabase, "trip creation failed", err))
			return result
		}
		trip = created
		result.TripID = trip.ID

		// The unassigned conversation becomes this trip's conversation
		s.state.Reset(ctx, stateKey)
		stateKey = trip.ID
		if err := s.state.Transition(ctx, stateKey, StateAnalyzing); err == nil {
			_ = s.state.Transition(ctx, stateKey, StatePlanning)
		}

		s.appendMessage(ctx, trip.ID, "user", req.Message)
	}

	if turnErr := s.applyActions(ctx, stateKey, trip, turn.Actions, result); turnErr != nil {
		s.failTurn(ctx, result, stateKey, trip, req.Message, turnErr)
		return result
	}

	// Reload authoritative state after mutation
	if trip != nil {
		reloaded, err := s.storage.TripStorage().GetTrip(ctx, trip.ID)
		if err == nil {
			trip = reloaded
		}
		dests, err := s.trips.ListDestinations(ctx, trip.ID)
		if err != nil {
			s.failTurn(ctx, result, stateKey, trip, req.Message,
				newTurnError(ErrorCategoryDatabase, "destination reload failed", err))
			return result
		}
		result.Trip = trip
		result.TripID = trip.ID
		result.Destinations = dests
	}

	if err := s.state.Transition(ctx, stateKey, StateCompleted); err != nil {
		s.logger.Warn().Err(err).Msg("State transition rejected")
	}
	result.State = StateCompleted

	if trip != nil {
		s.appendMessage(ctx, trip.ID, "assistant", result.Reply)
	}

	s.logger.Info().
		Str("trip_id", result.TripID).
		Int("added", result.AddedCount).
		Int("removed", result.RemovedCount).
		Int("failed", len(result.FailedNames)).
		Msg("Turn completed")

	return result
}

// generateAndParse runs the single bounded LLM attempt and validates its
// output into an AiTurnResult.
func (s *Service) generateAndParse(ctx context.Context, req *TurnRequest, trip *models.Trip) (*models.AiTurnResult, *TurnError) {
	llmCtx, cancel := context.WithTimeout(ctx, s.turnTimeout())
	defer cancel()

	genReq := &interfaces.GenerateRequest{
		Message: req.Message,
		Mode:    req.Mode,
		Model:   req.Model,
	}
	if trip != nil {
		genReq.TripContext = s.buildTripContext(ctx, trip)
		genReq.History = s.loadHistory(ctx, trip.ID)
	}

	resp, err := s.llm.GenerateTurn(llmCtx, genReq)
	if err != nil {
		// A turn that runs out its deadline counts against the model;
		// network covers transport failures below the provider
		category := ErrorCategoryAI
		if !errors.Is(err, context.DeadlineExceeded) {
			var netErr net.Error
			if errors.As(err, &netErr) {
				category = ErrorCategoryNetwork
			}
		}
		return nil, newTurnError(category, "assistant is unavailable right now", err)
	}

	if req.Mode == interfaces.TurnModeNarrative {
		reply := strings.TrimSpace(resp.Text)
		if reply == "" {
			return nil, newTurnError(ErrorCategoryAI, "assistant returned an empty itinerary", nil)
		}
		return &models.AiTurnResult{
			Reply:   reply,
			Actions: ParseNarrativeItinerary(reply),
		}, nil
	}

	turn, err := models.ParseTurnResult([]byte(resp.Text))
	if err != nil {
		return nil, newTurnError(ErrorCategoryValidation, "assistant response failed validation", err)
	}
	return turn, nil
}

// applyActions walks the validated action list in order. Mutating
// failures stop the walk; advisory actions only annotate the result.
func (s *Service) applyActions(ctx context.Context, stateKey string, trip *models.Trip, actions []models.TripAction, result *TurnResult) *TurnError {
	for i := range actions {
		action := &actions[i]

		// Mutations without a trip have nothing to mutate
		if trip == nil && isMutation(action.Action) {
			s.logger.Warn().
				Str("action", string(action.Action)).
				Msg("Skipping mutation without a trip")
			continue
		}

		switch action.Action {
		case models.ActionAddDestinations:
			if err := s.state.Transition(ctx, stateKey, StateAddingDestinations); err != nil {
				s.logger.Warn().Err(err).Msg("State transition rejected")
			}

			resolutions, err := s.resolver.ResolveAll(ctx, action.Destinations)
			if err != nil {
				return newTurnError(ErrorCategoryNetwork, "place resolution aborted", err)
			}

			added, failed, err := s.trips.AddResolvedDestinations(ctx, trip.ID, action.Day, resolutions)
			if err != nil {
				return newTurnError(ErrorCategoryDatabase, "failed to save destinations", err)
			}
			result.AddedCount += len(added)
			result.FailedNames = append(result.FailedNames, failed...)

		case models.ActionRemoveDestinations:
			removed, err := s.trips.RemoveDestinationsByNames(ctx, trip.ID, action.Names)
			if err != nil {
				return newTurnError(ErrorCategoryDatabase, "failed to remove destinations", err)
			}
			result.RemovedCount += removed

		case models.ActionReorderDestinations:
			if err := s.trips.ReorderDestinations(ctx, trip.ID, action.Order); err != nil {
				return newTurnError(ErrorCategoryDatabase, "failed to reorder destinations", err)
			}

		case models.ActionMoveDestination:
			err := s.trips.MoveDestination(ctx, trip.ID, action.Name, action.TargetDay, action.TargetPosition)
			if err != nil && !errors.Is(err, interfaces.ErrDestinationNotFound) {
				return newTurnError(ErrorCategoryDatabase, "failed to move destination", err)
			}
			if errors.Is(err, interfaces.ErrDestinationNotFound) {
				result.FailedNames = append(result.FailedNames, action.Name)
			}

		case models.ActionUpdateTripInfo, models.ActionModifyTrip:
			if _, err := s.trips.UpdateTripInfo(ctx, trip.ID, action.TripInfo); err != nil {
				return newTurnError(ErrorCategoryDatabase, "failed to update trip", err)
			}

		case models.ActionRecommendPlaces:
			result.Recommended = append(result.Recommended, action.Places...)

		case models.ActionAskPersonalInfo:
			result.Question = action.Question

		case models.ActionNoAction:
			// nothing to do
		}
	}

	return nil
}

// failTurn records a turn failure: error state, categorized result
// fields, and an apology reply persisted to the transcript.
func (s *Service) failTurn(ctx context.Context, result *TurnResult, stateKey string, trip *models.Trip, userMessage string, turnErr *TurnError) {
	s.logger.Error().
		Err(turnErr).
		Str("trip_id", stateKey).
		Str("category", string(turnErr.Category)).
		Msg("Turn failed")

	if err := s.state.Transition(ctx, stateKey, StateError); err != nil {
		s.logger.Warn().Err(err).Msg("State transition rejected")
	}

	result.State = StateError
	result.ErrorCategory = turnErr.Category
	result.ErrorMessage = turnErr.Message
	if result.Reply == "" {
		result.Reply = apologyReply(turnErr.Category)
	}

	if trip != nil {
		dests, err := s.trips.ListDestinations(ctx, trip.ID)
		if err == nil {
			result.Destinations = dests
		}
		result.Trip = trip
		result.TripID = trip.ID
		s.appendMessage(ctx, trip.ID, "assistant", result.Reply)
	}
}

// apologyReply maps an error category to a user-facing fallback reply
func apologyReply(category ErrorCategory) string {
	switch category {
	case ErrorCategoryNetwork:
		return "Sorry, I couldn't reach the planning service in time. Please try again."
	case ErrorCategoryDatabase:
		return "Sorry, I couldn't save your changes. Please try again."
	case ErrorCategoryValidation:
		return "Sorry, I had trouble understanding my own plan. Please try rephrasing your request."
	default:
		return "Sorry, something went wrong while planning. Please try again."
	}
}

// createTripFromActions builds a trip from the turn's trip_info patch,
// falling back to sensible defaults when the model omitted details.
func (s *Service) createTripFromActions(ctx context.Context, req *TurnRequest, actions []models.TripAction) (*models.Trip, error) {
	name := ""
	totalDays := 0
	startDate, endDate := "", ""

	for i := range actions {
		if actions[i].TripInfo == nil {
			continue
		}
		info := actions[i].TripInfo
		if name == "" {
			name = info.Name
		}
		if totalDays == 0 {
			totalDays = info.TotalDays
		}
		if startDate == "" {
			startDate = info.StartDate
		}
		if endDate == "" {
			endDate = info.EndDate
		}
	}

	// Without explicit day count, size the trip to the highest day named
	if totalDays == 0 {
		for i := range actions {
			if actions[i].Action == models.ActionAddDestinations && actions[i].Day > totalDays {
				totalDays = actions[i].Day
			}
		}
	}

	return s.trips.CreateTrip(ctx, name, totalDays, startDate, endDate, "")
}

// buildTripContext snapshots the trip for prompt construction
func (s *Service) buildTripContext(ctx context.Context, trip *models.Trip) *interfaces.TripContext {
	count := 0
	if dests, err := s.trips.ListDestinations(ctx, trip.ID); err == nil {
		count = len(dests)
	}
	return &interfaces.TripContext{
		TripID:            trip.ID,
		TripName:          trip.Name,
		TotalDays:         trip.TotalDays,
		StartDate:         trip.StartDate,
		EndDate:           trip.EndDate,
		DestinationsCount: count,
		Language:          trip.Language,
	}
}

// loadHistory returns the most recent transcript messages in order
func (s *Service) loadHistory(ctx context.Context, tripID string) []interfaces.Message {
	msgs, err := s.storage.MessageStorage().ListByTrip(ctx, tripID)
	if err != nil {
		s.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to load history")
		return nil
	}
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}

	history := make([]interfaces.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, interfaces.Message{Role: m.Role, Content: m.Content})
	}
	return history
}

// appendMessage persists a transcript message and announces it
func (s *Service) appendMessage(ctx context.Context, tripID, role, content string) {
	msg := &models.ChatMessage{
		ID:        common.NewMessageID(),
		TripID:    tripID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.storage.MessageStorage().AppendMessage(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to append message")
		return
	}

	if s.events != nil {
		event := interfaces.Event{
			Type: interfaces.EventMessageAppended,
			Payload: map[string]interface{}{
				"trip_id": tripID,
				"role":    role,
			},
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish message event")
		}
	}
}

func (s *Service) turnTimeout() time.Duration {
	if s.cfg != nil && s.cfg.TurnTimeout > 0 {
		return s.cfg.TurnTimeout
	}
	return 25 * time.Second
}

// needsTrip reports whether any action requires a trip to exist
func needsTrip(actions []models.TripAction) bool {
	for i := range actions {
		if isMutation(actions[i].Action) {
			return true
		}
	}
	return false
}

// isMutation reports whether an action mutates trip state
func isMutation(t models.ActionType) bool {
	switch t {
	case models.ActionAddDestinations,
		models.ActionRemoveDestinations,
		models.ActionReorderDestinations,
		models.ActionMoveDestination,
		models.ActionUpdateTripInfo,
		models.ActionModifyTrip:
		return true
	}
	return false
}

func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		return false
	}
	s.inFlight[key] = true
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}
