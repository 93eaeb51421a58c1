package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/services/assistant"
)

// AssistantHandler handles conversation turn HTTP requests
type AssistantHandler struct {
	assistantService *assistant.Service
	llmService       interfaces.LLMService
	logger           arbor.ILogger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(
	assistantService *assistant.Service,
	llmService interfaces.LLMService,
	logger arbor.ILogger,
) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
		llmService:       llmService,
		logger:           logger,
	}
}

// ChatHandler handles POST /api/assistant/chat requests
func (h *AssistantHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req assistant.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode turn request")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "Message field is required")
		return
	}

	h.logger.Info().
		Str("trip_id", req.TripID).
		Int("message_length", len(req.Message)).
		Str("mode", string(req.Mode)).
		Msg("Processing assistant turn")

	result, err := h.assistantService.HandleTurn(r.Context(), &req)
	if err != nil {
		if errors.Is(err, assistant.ErrTurnInFlight) {
			WriteError(w, http.StatusConflict, "A turn is already in progress for this trip")
			return
		}
		var turnErr *assistant.TurnError
		if errors.As(err, &turnErr) && turnErr.Category == assistant.ErrorCategoryValidation {
			WriteError(w, http.StatusBadRequest, turnErr.Message)
			return
		}
		h.logger.Error().Err(err).Msg("Turn processing failed")
		WriteError(w, http.StatusInternalServerError, "Failed to process turn")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// StateHandler handles GET /api/assistant/state requests
func (h *AssistantHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tripID := r.URL.Query().Get("trip_id")
	if tripID == "" {
		WriteError(w, http.StatusBadRequest, "trip_id query parameter is required")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trip_id": tripID,
		"state":   h.assistantService.State(tripID),
	})
}

// HealthHandler handles GET /api/assistant/health requests
func (h *AssistantHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if err := h.llmService.HealthCheck(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("LLM health check failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"healthy": true,
	})
}
