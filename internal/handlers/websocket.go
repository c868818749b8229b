package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every websocket frame.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// JobEventPayload is the websocket payload for job lifecycle events.
type JobEventPayload struct {
	JobID     string    `json:"job_id"`
	StoreID   string    `json:"store_id"`
	JobType   string    `json:"job_type"`
	Event     string    `json:"event"`
	Success   *bool     `json:"success,omitempty"`
	Error     string    `json:"error,omitempty"`
	// ReconnectRequired tells the dashboard to prompt the merchant to
	// re-authorize the store instead of offering a plain retry.
	ReconnectRequired bool      `json:"reconnect_required,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// WebSocketHandler pushes job lifecycle events to connected clients.
// Delivery is best effort; a slow or dead client never blocks the publisher
// beyond its own write.
type WebSocketHandler struct {
	logger       arbor.ILogger
	clients      map[*websocket.Conn]bool
	clientMutex  map[*websocket.Conn]*sync.Mutex
	mu           sync.RWMutex
	eventService interfaces.EventService
	unsubscribe  func()
}

// NewWebSocketHandler creates the handler and subscribes it to the event bus.
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:       logger,
		clients:      make(map[*websocket.Conn]bool),
		clientMutex:  make(map[*websocket.Conn]*sync.Mutex),
		eventService: eventService,
	}

	if eventService != nil {
		h.unsubscribe = eventService.Subscribe(h.handleJobEvent)
	}

	return h
}

// Close detaches the handler from the event bus and drops all clients.
func (h *WebSocketHandler) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read messages from client (keep connection alive)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// handleJobEvent converts a bus event into a websocket frame and broadcasts it.
func (h *WebSocketHandler) handleJobEvent(event interfaces.Event) {
	payload := JobEventPayload{
		JobID:     event.JobID,
		StoreID:   event.StoreID,
		JobType:   string(event.JobType),
		Event:     string(event.Type),
		Timestamp: time.Now().UTC(),
	}
	if event.Result != nil {
		success := event.Result.Success
		payload.Success = &success
		payload.Error = event.Result.Error
		payload.ReconnectRequired = event.Result.ReconnectRequired
	}

	h.broadcast(WSMessage{Type: "job_event", Payload: payload})
}

// broadcast sends one message to every connected client.
func (h *WebSocketHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send job event to client")
		}
	}
}
