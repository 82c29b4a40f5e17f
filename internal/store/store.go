package store

import (
	"context"
	"time"

	"strangerchat/internal/models"
)

// Tickets is the waiting-queue collection. Implementations must enforce the
// single-active-ticket-per-user invariant and provide a conditional claim
// that either consumes both tickets and creates the session or does nothing.
type Tickets interface {
	// Insert adds a waiting ticket. Returns ErrAlreadyQueued when the user
	// already has an active ticket.
	Insert(ctx context.Context, ticket *models.Ticket) error

	// Cancel marks the user's waiting ticket cancelled. Absent or already
	// claimed tickets are a silent no-op.
	Cancel(ctx context.Context, userID string) error

	// Active returns the user's waiting ticket, or ErrNotFound.
	Active(ctx context.Context, userID string) (*models.Ticket, error)

	// Waiting returns waiting tickets ordered by enqueue time ascending,
	// ties broken by ticket id ascending.
	Waiting(ctx context.Context, limit int64) ([]models.Ticket, error)

	// ClaimPair atomically transitions both tickets from waiting to claimed
	// and creates the session. If either ticket is no longer waiting the
	// whole claim fails with ErrClaimConflict and nothing is written.
	ClaimPair(ctx context.Context, first, second models.Ticket, session *models.ChatSession) error

	// DeleteExpired removes waiting tickets whose expiry has passed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sessions is the chat-session collection.
type Sessions interface {
	// Get returns a session by room id, or ErrNotFound.
	Get(ctx context.Context, roomID string) (*models.ChatSession, error)

	// Complete transitions an active session to completed exactly once and
	// returns the updated record. Completing a completed session returns
	// ErrNotFound so callers can treat it as already done.
	Complete(ctx context.Context, roomID, endedBy string, endedAt time.Time) (*models.ChatSession, error)

	// IncrementMessages bumps the session's message counter and returns the
	// new total.
	IncrementMessages(ctx context.Context, roomID string) (int64, error)

	// ActiveForUser returns the user's active session, or ErrNotFound.
	ActiveForUser(ctx context.Context, userID string) (*models.ChatSession, error)

	// ListForUser returns the user's sessions newest first.
	ListForUser(ctx context.Context, userID string, limit int64) ([]models.ChatSession, error)
}

// Stats is the per-user statistics collection, one document per user.
type Stats interface {
	// Get returns the user's statistics, or ErrNotFound.
	Get(ctx context.Context, userID string) (*models.UserStatistics, error)

	// Save upserts the user's statistics document.
	Save(ctx context.Context, stats *models.UserStatistics) error
}

// Prober performs the lightweight read+write health check against the
// store's sentinel record.
type Prober interface {
	Probe(ctx context.Context) error
}
