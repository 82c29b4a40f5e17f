package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType represents different types of WebSocket messages
type MessageType string

const (
	// Chat message types
	MessageTypeText       MessageType = "text"
	MessageTypeTyping     MessageType = "typing"
	MessageTypeStopTyping MessageType = "stop_typing"

	// System message types
	MessageTypeError     MessageType = "error"
	MessageTypeSuccess   MessageType = "success"
	MessageTypeHeartbeat MessageType = "heartbeat"
	MessageTypeUserLeft  MessageType = "user_left"

	// Pairing system types
	MessageTypeMatchFound  MessageType = "match_found"
	MessageTypeQueueUpdate MessageType = "queue_update"
	MessageTypeChatEnded   MessageType = "chat_ended"

	// Store reachability updates
	MessageTypeConnectionStatus MessageType = "connection_status"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	ID        string                 `json:"id"`
	Type      MessageType            `json:"type"`
	Content   string                 `json:"content,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	From      string                 `json:"from,omitempty"`
	RoomID    string                 `json:"room_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewWSMessage creates a new WebSocket message
func NewWSMessage(msgType MessageType, content string, data map[string]interface{}) *WSMessage {
	return &WSMessage{
		ID:        uuid.NewString(),
		Type:      msgType,
		Content:   content,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// ToJSON converts message to JSON bytes
func (msg *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(msg)
}

// FromJSON creates message from JSON bytes
func FromJSON(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// SetFrom sets the sender of the message
func (msg *WSMessage) SetFrom(userID string) {
	msg.From = userID
}

// SetRoomID sets the room ID for the message
func (msg *WSMessage) SetRoomID(roomID string) {
	msg.RoomID = roomID
}

// IsChatMessage checks if message is a chat message
func (msg *WSMessage) IsChatMessage() bool {
	return msg.Type == MessageTypeText
}

// Validate validates the message structure
func (msg *WSMessage) Validate() error {
	if msg.Type == "" {
		return fmt.Errorf("message type is required")
	}

	if msg.IsChatMessage() && msg.Content == "" {
		return fmt.Errorf("content is required for chat messages")
	}

	return nil
}
