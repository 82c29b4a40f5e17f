package websocket

import (
	"sync"
	"time"

	"strangerchat/internal/models"
	"strangerchat/pkg/logger"
)

// Hub maintains the set of active clients and fans out match notifications,
// connection-status transitions and in-session chat relay.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients organized by user ID
	userClients map[string]*Client

	// Clients organized by room ID
	roomClients map[string]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Broadcast messages to all clients
	Broadcast chan *WSMessage

	// Broadcast messages to specific room
	RoomBroadcast chan *RoomMessage

	// Broadcast messages to specific user
	UserBroadcast chan *UserMessage

	mu sync.RWMutex
}

// RoomMessage represents a message to be sent to a room
type RoomMessage struct {
	RoomID  string
	Message *WSMessage
	Exclude string // User ID to exclude from broadcast
}

// UserMessage represents a message to be sent to a user
type UserMessage struct {
	UserID  string
	Message *WSMessage
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]*Client),
		roomClients:   make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		Broadcast:     make(chan *WSMessage),
		RoomBroadcast: make(chan *RoomMessage),
		UserBroadcast: make(chan *UserMessage),
	}
}

// Run starts the hub and handles client registration/unregistration
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.Broadcast:
			h.broadcastToAll(message)

		case roomMsg := <-h.RoomBroadcast:
			h.broadcastToRoom(roomMsg)

		case userMsg := <-h.UserBroadcast:
			h.broadcastToUser(userMsg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.userClients[client.UserID] = client

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": len(h.clients),
	}).Info("Client registered")

	welcomeMsg := NewWSMessage(MessageTypeSuccess, "Connected successfully", map[string]interface{}{
		"user_id":     client.UserID,
		"server_time": time.Now(),
	})
	client.SendMessage(welcomeMsg)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		delete(h.userClients, client.UserID)

		if client.GetRoomID() != "" {
			h.removeClientFromRoom(client)
		}

		close(client.Send)

		logger.WithFields(map[string]interface{}{
			"user_id":       client.UserID,
			"total_clients": len(h.clients),
		}).Info("Client unregistered")
	}
}

// AddClientToRoom adds a client to a room
func (h *Hub) AddClientToRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.GetRoomID() != "" {
		h.removeClientFromRoom(client)
	}

	if h.roomClients[roomID] == nil {
		h.roomClients[roomID] = make(map[*Client]bool)
	}
	h.roomClients[roomID][client] = true
	client.SetRoomID(roomID)

	logger.LogChatEvent("user_joined_room", roomID, client.UserID, map[string]interface{}{
		"room_size": len(h.roomClients[roomID]),
	})
}

// removeClientFromRoom must be called with h.mu held.
func (h *Hub) removeClientFromRoom(client *Client) {
	roomID := client.GetRoomID()
	if roomID == "" {
		return
	}

	if roomClients, exists := h.roomClients[roomID]; exists {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.roomClients, roomID)
		}
	}

	client.SetRoomID("")

	logger.LogChatEvent("user_left_room", roomID, client.UserID, nil)
}

func (h *Hub) broadcastToAll(message *WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := message.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal broadcast message")
		return
	}

	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

func (h *Hub) broadcastToRoom(roomMsg *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, exists := h.roomClients[roomMsg.RoomID]
	if !exists {
		return
	}

	data, err := roomMsg.Message.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal room message")
		return
	}

	for client := range roomClients {
		if roomMsg.Exclude != "" && client.UserID == roomMsg.Exclude {
			continue
		}

		select {
		case client.Send <- data:
		default:
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

func (h *Hub) broadcastToUser(userMsg *UserMessage) {
	h.mu.RLock()
	client, exists := h.userClients[userMsg.UserID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	client.SendMessage(userMsg.Message)
}

// Public methods for broadcasting

// BroadcastToRoom broadcasts a message to a room
func (h *Hub) BroadcastToRoom(roomID string, message *WSMessage) {
	h.RoomBroadcast <- &RoomMessage{
		RoomID:  roomID,
		Message: message,
	}
}

// BroadcastToRoomExcept broadcasts a message to a room except one user
func (h *Hub) BroadcastToRoomExcept(roomID, excludeUserID string, message *WSMessage) {
	h.RoomBroadcast <- &RoomMessage{
		RoomID:  roomID,
		Message: message,
		Exclude: excludeUserID,
	}
}

// BroadcastToUser broadcasts a message to a specific user
func (h *Hub) BroadcastToUser(userID string, message *WSMessage) {
	h.UserBroadcast <- &UserMessage{
		UserID:  userID,
		Message: message,
	}
}

// NotifyMatch pushes a match_found message to both participants and moves
// their connected clients into the session room. Implements the matchmaker's
// notifier contract.
func (h *Hub) NotifyMatch(session models.ChatSession) {
	h.mu.Lock()
	for _, userID := range session.Participants {
		if client, ok := h.userClients[userID]; ok {
			if client.GetRoomID() != "" {
				h.removeClientFromRoom(client)
			}
			if h.roomClients[session.RoomID] == nil {
				h.roomClients[session.RoomID] = make(map[*Client]bool)
			}
			h.roomClients[session.RoomID][client] = true
			client.SetRoomID(session.RoomID)
		}
	}
	h.mu.Unlock()

	for _, userID := range session.Participants {
		message := NewWSMessage(MessageTypeMatchFound, "", map[string]interface{}{
			"room_id":    session.RoomID,
			"partner_id": session.Partner(userID),
			"created_at": session.CreatedAt,
		})
		message.SetRoomID(session.RoomID)
		h.BroadcastToUser(userID, message)
	}
}

// NotifySessionEnded tells the remaining participant the chat is over and
// empties the room. Implements the chat service's notifier contract.
func (h *Hub) NotifySessionEnded(session models.ChatSession, endedBy string) {
	message := NewWSMessage(MessageTypeChatEnded, "", map[string]interface{}{
		"room_id":  session.RoomID,
		"ended_by": endedBy,
		"duration": session.Duration,
	})
	message.SetRoomID(session.RoomID)

	data, err := message.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal session end message")
		return
	}

	// Deliver before emptying the room, under one lock, so the partner cannot
	// be removed ahead of the notification.
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.roomClients[session.RoomID]
	for client := range clients {
		if client.UserID == endedBy {
			continue
		}
		select {
		case client.Send <- data:
		default:
		}
	}
	for client := range clients {
		h.removeClientFromRoom(client)
	}
}

// BroadcastConnectionStatus fans a monitor transition out to every client so
// the UI can show outage banners without polling. Registered as a connection
// listener in main.
func (h *Hub) BroadcastConnectionStatus(status models.ConnectionStatus) {
	message := NewWSMessage(MessageTypeConnectionStatus, "", map[string]interface{}{
		"state":               string(status.State),
		"connected":           status.Connected,
		"error":               status.Error,
		"retry_count":         status.RetryCount,
		"max_retries_reached": status.MaxRetriesReached,
	})
	h.Broadcast <- message
}

// IsUserOnline checks if a user is online
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.userClients[userID]
	return exists
}

// GetOnlineUsers returns list of online users
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}
