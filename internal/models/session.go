package models

import (
	"time"
)

// Session statuses
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// ChatSession is a confirmed pairing of exactly two users. A user appears in
// at most one active session at a time.
type ChatSession struct {
	ID           string     `bson:"_id" json:"id"`
	RoomID       string     `bson:"room_id" json:"room_id"`
	Participants []string   `bson:"participants" json:"participants"`
	Status       string     `bson:"status" json:"status"` // active, completed
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	EndedAt      *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	EndedBy      string     `bson:"ended_by,omitempty" json:"ended_by,omitempty"`
	Duration     int64      `bson:"duration" json:"duration"` // in seconds
	MessageCount int64      `bson:"message_count" json:"message_count"`
}

// HasParticipant reports whether userID is one of the two paired users.
func (s *ChatSession) HasParticipant(userID string) bool {
	for _, id := range s.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Partner returns the other participant of the session.
func (s *ChatSession) Partner(userID string) string {
	for _, id := range s.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}
