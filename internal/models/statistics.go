package models

import "time"

// UserStatistics holds per-user counters and derived running averages.
// Averages are maintained with the incremental-mean formula so no session
// history scan is needed; under concurrent writers for the same user they are
// approximate, which is acceptable for this subsystem's analytics purpose.
type UserStatistics struct {
	UserID                 string    `bson:"_id" json:"user_id"`
	TotalChats             int64     `bson:"total_chats" json:"total_chats"`
	ActiveChats            int64     `bson:"active_chats" json:"active_chats"`
	CompletedChats         int64     `bson:"completed_chats" json:"completed_chats"`
	TotalMessages          int64     `bson:"total_messages" json:"total_messages"`
	AverageMessagesPerChat float64   `bson:"average_messages_per_chat" json:"average_messages_per_chat"`
	AverageChatDuration    float64   `bson:"average_chat_duration" json:"average_chat_duration"` // minutes
	LastActivity           time.Time `bson:"last_activity" json:"last_activity"`
}

// NewUserStatistics returns a zeroed record for lazy initialization.
func NewUserStatistics(userID string) *UserStatistics {
	return &UserStatistics{
		UserID:       userID,
		LastActivity: time.Now(),
	}
}
