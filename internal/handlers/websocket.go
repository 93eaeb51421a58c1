package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/services/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the wire envelope for all WebSocket traffic
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// clientCommand is what clients send: subscribe/unsubscribe for a trip
type clientCommand struct {
	Type   string `json:"type"`
	TripID string `json:"trip_id,omitempty"`
}

// WebSocketHandler fans trip state out to connected clients. Clients
// subscribe to one trip at a time; every mutation pushes the full
// reloaded state rather than a diff.
type WebSocketHandler struct {
	logger       arbor.ILogger
	bridge       *realtime.Bridge
	eventService interfaces.EventService

	mu          sync.RWMutex
	clients     map[*websocket.Conn]string // conn -> subscribed trip ID ("" = none)
	clientMutex map[*websocket.Conn]*sync.Mutex
	tripConns   map[string]map[*websocket.Conn]bool

	allowedEvents  map[string]bool // Whitelist of events to broadcast (empty = allow all)
	stateThrottler *rate.Limiter   // Rate limiter for assistant state events

	serverInstanceID string // Unique ID generated on startup - clients use to detect server restart
}

func NewWebSocketHandler(bridge *realtime.Bridge, eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		bridge:           bridge,
		eventService:     eventService,
		clients:          make(map[*websocket.Conn]string),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		tripConns:        make(map[string]map[*websocket.Conn]bool),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")

	// Empty whitelist allows all events
	h.allowedEvents = make(map[string]bool)
	if config != nil && len(config.AllowedEvents) > 0 {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		logger.Debug().
			Int("allowed_events", len(h.allowedEvents)).
			Msg("Initialized event whitelist for WebSocketHandler")
	}

	// Nil throttler = no throttling
	if config != nil && len(config.ThrottleIntervals) > 0 {
		if intervalStr, ok := config.ThrottleIntervals["assistant_state_changed"]; ok {
			if duration, err := time.ParseDuration(intervalStr); err == nil {
				h.stateThrottler = rate.NewLimiter(rate.Every(duration), 1)
				logger.Debug().
					Str("event_type", "assistant_state_changed").
					Str("interval", intervalStr).
					Msg("Throttler initialized for assistant state events")
			} else {
				logger.Warn().
					Err(err).
					Str("interval", intervalStr).
					Msg("Failed to parse state throttle interval - throttler disabled")
			}
		}
	}

	if eventService != nil {
		h.subscribeToAssistantEvents()
	}

	return h
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = ""
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	h.sendHello(conn)

	// Optional trip_id query parameter subscribes immediately
	if tripID := r.URL.Query().Get("trip_id"); tripID != "" {
		h.subscribeConn(conn, tripID)
	}

	defer func() {
		h.detachConn(conn)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.logger.Warn().Err(err).Msg("Invalid WebSocket client message")
			continue
		}

		switch cmd.Type {
		case "subscribe":
			if cmd.TripID != "" {
				h.subscribeConn(conn, cmd.TripID)
			}
		case "unsubscribe":
			h.unsubscribeConn(conn)
		}
	}
}

// subscribeConn binds a connection to a trip's state stream. A client
// follows one trip at a time; resubscribing switches trips.
func (h *WebSocketHandler) subscribeConn(conn *websocket.Conn, tripID string) {
	h.unsubscribeConn(conn)

	h.mu.Lock()
	h.clients[conn] = tripID
	firstForTrip := len(h.tripConns[tripID]) == 0
	if h.tripConns[tripID] == nil {
		h.tripConns[tripID] = make(map[*websocket.Conn]bool)
	}
	h.tripConns[tripID][conn] = true
	h.mu.Unlock()

	// The bridge subscription is shared across all clients of one trip
	if firstForTrip && h.bridge != nil {
		err := h.bridge.Subscribe(tripID, realtime.Handlers{
			OnDestinationsChange: func(snapshot *realtime.Snapshot) {
				h.broadcastSnapshot(tripID, snapshot)
			},
			OnTripChange: func(snapshot *realtime.Snapshot) {
				h.broadcastSnapshot(tripID, snapshot)
			},
			OnError: func(err error) {
				h.broadcastToTrip(tripID, WSMessage{
					Type: "sync_error",
					Payload: map[string]interface{}{
						"trip_id": tripID,
						"error":   err.Error(),
					},
				})
			},
		})
		if err != nil {
			h.logger.Error().Err(err).Str("trip_id", tripID).Msg("Failed to establish trip subscription")
		}
	}

	h.logger.Debug().Str("trip_id", tripID).Msg("WebSocket client subscribed to trip")
}

// unsubscribeConn detaches a connection from its trip, releasing the
// bridge subscription when it was the last client for that trip
func (h *WebSocketHandler) unsubscribeConn(conn *websocket.Conn) {
	h.mu.Lock()
	tripID := h.clients[conn]
	if tripID == "" {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = ""
	delete(h.tripConns[tripID], conn)
	lastForTrip := len(h.tripConns[tripID]) == 0
	if lastForTrip {
		delete(h.tripConns, tripID)
	}
	h.mu.Unlock()

	if lastForTrip && h.bridge != nil {
		if err := h.bridge.Unsubscribe(tripID); err != nil {
			h.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to release trip subscription")
		}
	}
}

// detachConn removes a disconnected client entirely
func (h *WebSocketHandler) detachConn(conn *websocket.Conn) {
	h.unsubscribeConn(conn)

	h.mu.Lock()
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", clientCount)
}

// sendHello sends the server instance ID so clients can detect restarts
func (h *WebSocketHandler) sendHello(conn *websocket.Conn) {
	msg := WSMessage{
		Type: "hello",
		Payload: map[string]interface{}{
			"serverInstanceId": h.serverInstanceID,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal hello message")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()

	if mutex != nil {
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send hello")
		}
	}
}

// broadcastSnapshot pushes the full reloaded trip state to every client
// subscribed to the trip
func (h *WebSocketHandler) broadcastSnapshot(tripID string, snapshot *realtime.Snapshot) {
	if len(h.allowedEvents) > 0 && !h.allowedEvents["trip_snapshot"] {
		return
	}

	h.broadcastToTrip(tripID, WSMessage{
		Type: "trip_snapshot",
		Payload: map[string]interface{}{
			"trip_id":      tripID,
			"trip":         snapshot.Trip,
			"destinations": snapshot.Destinations,
		},
	})
}

// broadcastToTrip sends a message to all connections subscribed to a trip
func (h *WebSocketHandler) broadcastToTrip(tripID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.tripConns[tripID]))
	mutexes := make([]*sync.Mutex, 0, len(h.tripConns[tripID]))
	for conn := range h.tripConns[tripID] {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutex := mutexes[i]
		if mutex == nil {
			continue
		}
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
		}
	}
}

// subscribeToAssistantEvents relays processing-state and transcript
// events to the subscribed clients
func (h *WebSocketHandler) subscribeToAssistantEvents() {
	h.eventService.Subscribe(interfaces.EventAssistantStateChanged, func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			h.logger.Warn().Msg("Invalid assistant state event payload type")
			return nil
		}

		if len(h.allowedEvents) > 0 && !h.allowedEvents["assistant_state_changed"] {
			return nil
		}

		state := getString(payload, "state")

		// Throttle intermediate state events to prevent WebSocket flooding
		// during a turn; completed and error always go out
		terminal := state == "completed" || state == "error"
		if !terminal && h.stateThrottler != nil && !h.stateThrottler.Allow() {
			return nil
		}

		tripID := getString(payload, "trip_id")
		if tripID == "" {
			return nil
		}

		h.broadcastToTrip(tripID, WSMessage{
			Type: "assistant_state",
			Payload: map[string]interface{}{
				"trip_id": tripID,
				"state":   state,
			},
		})
		return nil
	})

	h.eventService.Subscribe(interfaces.EventMessageAppended, func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			h.logger.Warn().Msg("Invalid message appended event payload type")
			return nil
		}

		if len(h.allowedEvents) > 0 && !h.allowedEvents["message_appended"] {
			return nil
		}

		tripID := getString(payload, "trip_id")
		if tripID == "" {
			return nil
		}

		h.broadcastToTrip(tripID, WSMessage{
			Type: "message_appended",
			Payload: map[string]interface{}{
				"trip_id": tripID,
				"role":    getString(payload, "role"),
			},
		})
		return nil
	})
}

// getString safely extracts a string from a payload map
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
