package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"strangerchat/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 256

	// Messages per minute allowed from one client
	messageRateLimit = 60
)

var newline = []byte{'\n'}

// MessageRecorder counts relayed chat messages against the session and the
// sender's statistics. Satisfied by services.ChatService.
type MessageRecorder interface {
	RecordMessage(ctx context.Context, roomID, userID string) error
}

// Client represents a WebSocket client
type Client struct {
	// WebSocket connection
	Conn *websocket.Conn

	// Hub that manages this client
	Hub *Hub

	// Buffered channel of outbound messages
	Send chan []byte

	// Client information
	UserID string
	roomID string

	recorder MessageRecorder

	// Connection state
	ConnectedAt time.Time
	LastPong    time.Time

	// Rate limiting
	messageCount int
	lastMessage  time.Time

	mu sync.RWMutex
}

// NewClient creates a new WebSocket client. recorder may be nil.
func NewClient(conn *websocket.Conn, hub *Hub, userID string, recorder MessageRecorder) *Client {
	return &Client{
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		recorder:    recorder,
		ConnectedAt: time.Now(),
		LastPong:    time.Now(),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.logDisconnection()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.LastPong = time.Now()
		c.mu.Unlock()
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	logger.LogUserAction(c.UserID, "websocket_connected", nil)

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				}).Error("WebSocket read error")
			}
			break
		}

		if !c.checkRateLimit() {
			c.sendError("Rate limit exceeded")
			continue
		}

		wsMsg, err := c.parseMessage(message)
		if err != nil {
			c.sendError(fmt.Sprintf("Invalid message format: %v", err))
			continue
		}

		wsMsg.SetFrom(c.UserID)
		if roomID := c.GetRoomID(); roomID != "" {
			wsMsg.SetRoomID(roomID)
		}

		if err := wsMsg.Validate(); err != nil {
			c.sendError(fmt.Sprintf("Message validation failed: %v", err))
			continue
		}

		c.handleMessage(wsMsg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) parseMessage(data []byte) (*WSMessage, error) {
	var wsMsg WSMessage
	if err := json.Unmarshal(data, &wsMsg); err != nil {
		return nil, err
	}

	if wsMsg.Timestamp.IsZero() {
		wsMsg.Timestamp = time.Now()
	}

	return &wsMsg, nil
}

func (c *Client) handleMessage(msg *WSMessage) {
	switch msg.Type {
	case MessageTypeText:
		c.handleChatMessage(msg)
	case MessageTypeTyping, MessageTypeStopTyping:
		c.handleTypingIndicator(msg)
	case MessageTypeHeartbeat:
		c.handleHeartbeat()
	default:
		c.sendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (c *Client) handleChatMessage(msg *WSMessage) {
	roomID := c.GetRoomID()
	if roomID == "" {
		c.sendError("Not in a chat room")
		return
	}

	if c.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.recorder.RecordMessage(ctx, roomID, c.UserID); err != nil {
			logger.WithError(err).Error("Failed to record chat message")
		}
		cancel()
	}

	c.Hub.BroadcastToRoomExcept(roomID, c.UserID, msg)

	logger.LogChatEvent("message_sent", roomID, c.UserID, map[string]interface{}{
		"content_length": len(msg.Content),
	})
}

func (c *Client) handleTypingIndicator(msg *WSMessage) {
	roomID := c.GetRoomID()
	if roomID == "" {
		return
	}

	c.Hub.BroadcastToRoomExcept(roomID, c.UserID, msg)
}

func (c *Client) handleHeartbeat() {
	response := NewWSMessage(MessageTypeHeartbeat, "", map[string]interface{}{
		"server_time": time.Now(),
		"uptime":      time.Since(c.ConnectedAt).Seconds(),
	})
	c.SendMessage(response)
}

func (c *Client) checkRateLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastMessage) > time.Minute {
		c.messageCount = 0
	}

	c.lastMessage = now
	c.messageCount++

	return c.messageCount <= messageRateLimit
}

// SendMessage sends a message to the client
func (c *Client) SendMessage(msg *WSMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

func (c *Client) sendError(message string) {
	errorMsg := NewWSMessage(MessageTypeError, message, nil)
	c.SendMessage(errorMsg)
}

// SetRoomID sets the room ID for the client
func (c *Client) SetRoomID(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoomID gets the room ID for the client
func (c *Client) GetRoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Client) logDisconnection() {
	logger.LogUserAction(c.UserID, "websocket_disconnected", map[string]interface{}{
		"duration_seconds": time.Since(c.ConnectedAt).Seconds(),
		"message_count":    c.messageCount,
	})
}
