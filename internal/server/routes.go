package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (realtime trip sync)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Assistant (conversation turns)
	mux.HandleFunc("/api/assistant/chat", s.app.AssistantHandler.ChatHandler)
	mux.HandleFunc("/api/assistant/state", s.app.AssistantHandler.StateHandler)
	mux.HandleFunc("/api/assistant/health", s.app.AssistantHandler.HealthHandler)

	// API routes - Trips
	mux.HandleFunc("/api/trips", s.handleTripsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/trips/", s.handleTripRoutes) // GET/PUT/DELETE /{id} and subpaths

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleTripsRoute routes /api/trips requests (list and create)
func (s *Server) handleTripsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.TripHandler.ListTripsHandler, s.app.TripHandler.CreateTripHandler)
}

// handleTripRoutes routes /api/trips/{id} requests and subpaths
func (s *Server) handleTripRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET /api/trips/{id}/destinations
	if strings.HasSuffix(path, "/destinations") {
		s.app.TripHandler.ListDestinationsHandler(w, r)
		return
	}

	// GET /api/trips/{id}/messages
	if strings.HasSuffix(path, "/messages") {
		s.app.TripHandler.ListMessagesHandler(w, r)
		return
	}

	// GET/PUT/DELETE /api/trips/{id}
	RouteResourceItem(w, r,
		s.app.TripHandler.GetTripHandler,
		s.app.TripHandler.UpdateTripHandler,
		s.app.TripHandler.DeleteTripHandler,
	)
}
