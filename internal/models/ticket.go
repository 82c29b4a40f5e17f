package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ticket statuses
const (
	TicketWaiting   = "waiting"
	TicketClaimed   = "claimed"
	TicketCancelled = "cancelled"
)

// Ticket is a queued request to be paired with a stranger. At most one
// non-cancelled ticket may exist per user at any time.
type Ticket struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Status     string             `bson:"status" json:"status"` // waiting, claimed, cancelled
	EnqueuedAt time.Time          `bson:"timestamp" json:"enqueued_at"`
	ClaimedAt  *time.Time         `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"expires_at"`
}

// IsActive reports whether the ticket still occupies the user's queue slot.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketWaiting
}
