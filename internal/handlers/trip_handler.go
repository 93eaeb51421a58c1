package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
	"github.com/ternarybob/voyager/internal/services/trips"
)

// TripHandler handles trip and destination HTTP requests
type TripHandler struct {
	tripService *trips.Service
	storage     interfaces.StorageManager
	logger      arbor.ILogger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(tripService *trips.Service, storage interfaces.StorageManager, logger arbor.ILogger) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		storage:     storage,
		logger:      logger,
	}
}

// CreateTripRequest is the POST /api/trips request body
type CreateTripRequest struct {
	Name      string `json:"name"`
	TotalDays int    `json:"total_days"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Language  string `json:"language,omitempty"`
}

// ListTripsHandler handles GET /api/trips requests
func (h *TripHandler) ListTripsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tripList, err := h.tripService.ListTrips(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list trips")
		WriteError(w, http.StatusInternalServerError, "Failed to list trips")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trips": tripList,
		"count": len(tripList),
	})
}

// CreateTripHandler handles POST /api/trips requests
func (h *TripHandler) CreateTripHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	trip, err := h.tripService.CreateTrip(r.Context(), req.Name, req.TotalDays, req.StartDate, req.EndDate, req.Language)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create trip")
		WriteError(w, http.StatusInternalServerError, "Failed to create trip")
		return
	}

	WriteJSON(w, http.StatusCreated, trip)
}

// GetTripHandler handles GET /api/trips/{id} requests
func (h *TripHandler) GetTripHandler(w http.ResponseWriter, r *http.Request) {
	tripID := pathSegment(r.URL.Path, "/api/trips/")
	if tripID == "" {
		WriteError(w, http.StatusBadRequest, "Trip ID is required")
		return
	}

	trip, err := h.tripService.GetTrip(r.Context(), tripID)
	if err != nil {
		if errors.Is(err, interfaces.ErrTripNotFound) {
			WriteError(w, http.StatusNotFound, "Trip not found")
			return
		}
		h.logger.Error().Err(err).Str("trip_id", tripID).Msg("Failed to get trip")
		WriteError(w, http.StatusInternalServerError, "Failed to get trip")
		return
	}

	WriteJSON(w, http.StatusOK, trip)
}

// UpdateTripHandler handles PUT /api/trips/{id} requests
func (h *TripHandler) UpdateTripHandler(w http.ResponseWriter, r *http.Request) {
	tripID := pathSegment(r.URL.Path, "/api/trips/")
	if tripID == "" {
		WriteError(w, http.StatusBadRequest, "Trip ID is required")
		return
	}

	var patch models.TripInfoPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	trip, err := h.tripService.UpdateTripInfo(r.Context(), tripID, &patch)
	if err != nil {
		if errors.Is(err, interfaces.ErrTripNotFound) {
			WriteError(w, http.StatusNotFound, "Trip not found")
			return
		}
		h.logger.Error().Err(err).Str("trip_id", tripID).Msg("Failed to update trip")
		WriteError(w, http.StatusInternalServerError, "Failed to update trip")
		return
	}

	WriteJSON(w, http.StatusOK, trip)
}

// DeleteTripHandler handles DELETE /api/trips/{id} requests
func (h *TripHandler) DeleteTripHandler(w http.ResponseWriter, r *http.Request) {
	tripID := pathSegment(r.URL.Path, "/api/trips/")
	if tripID == "" {
		WriteError(w, http.StatusBadRequest, "Trip ID is required")
		return
	}

	if err := h.tripService.DeleteTrip(r.Context(), tripID); err != nil {
		if errors.Is(err, interfaces.ErrTripNotFound) {
			WriteError(w, http.StatusNotFound, "Trip not found")
			return
		}
		h.logger.Error().Err(err).Str("trip_id", tripID).Msg("Failed to delete trip")
		WriteError(w, http.StatusInternalServerError, "Failed to delete trip")
		return
	}

	WriteSuccess(w, "Trip deleted")
}

// ListDestinationsHandler handles GET /api/trips/{id}/destinations requests
func (h *TripHandler) ListDestinationsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tripID := pathSegment(r.URL.Path, "/api/trips/")
	if tripID == "" {
		WriteError(w, http.StatusBadRequest, "Trip ID is required")
		return
	}

	dests, err := h.tripService.ListDestinations(r.Context(), tripID)
	if err != nil {
		h.logger.Error().Err(err).Str("trip_id", tripID).Msg("Failed to list destinations")
		WriteError(w, http.StatusInternalServerError, "Failed to list destinations")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trip_id":      tripID,
		"destinations": dests,
		"count":        len(dests),
	})
}

// ListMessagesHandler handles GET /api/trips/{id}/messages requests
func (h *TripHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tripID := pathSegment(r.URL.Path, "/api/trips/")
	if tripID == "" {
		WriteError(w, http.StatusBadRequest, "Trip ID is required")
		return
	}

	msgs, err := h.storage.MessageStorage().ListByTrip(r.Context(), tripID)
	if err != nil {
		h.logger.Error().Err(err).Str("trip_id", tripID).Msg("Failed to list messages")
		WriteError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trip_id":  tripID,
		"messages": msgs,
		"count":    len(msgs),
	})
}

// pathSegment extracts the first path segment after a prefix
func pathSegment(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return ""
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}
