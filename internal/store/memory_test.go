package store

import (
	"context"
	"testing"
	"time"

	"strangerchat/internal/models"

	"github.com/stretchr/testify/require"
)

func waitingTicket(t *testing.T, s *MemoryStore, userID string, at time.Time) models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		UserID:     userID,
		Status:     models.TicketWaiting,
		EnqueuedAt: at,
		ExpiresAt:  at.Add(10 * time.Minute),
	}
	require.NoError(t, s.Insert(context.Background(), ticket))
	return *ticket
}

func activeSession(roomID string, participants ...string) *models.ChatSession {
	return &models.ChatSession{
		ID:           roomID,
		RoomID:       roomID,
		Participants: participants,
		Status:       models.SessionActive,
		CreatedAt:    time.Now(),
	}
}

func TestInsertRejectsSecondWaitingTicket(t *testing.T) {
	s := NewMemoryStore()
	waitingTicket(t, s, "u1", time.Now())

	err := s.Insert(context.Background(), &models.Ticket{
		UserID:     "u1",
		Status:     models.TicketWaiting,
		EnqueuedAt: time.Now(),
	})
	require.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestWaitingOrdersByTimestamp(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()

	waitingTicket(t, s, "second", base.Add(time.Second))
	waitingTicket(t, s, "first", base)
	waitingTicket(t, s, "third", base.Add(2*time.Second))

	waiting, err := s.Waiting(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, waiting, 3)
	require.Equal(t, "first", waiting[0].UserID)
	require.Equal(t, "second", waiting[1].UserID)
	require.Equal(t, "third", waiting[2].UserID)

	limited, err := s.Waiting(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestClaimPairIsConditional(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	a := waitingTicket(t, s, "u1", base)
	b := waitingTicket(t, s, "u2", base.Add(time.Second))

	require.NoError(t, s.ClaimPair(context.Background(), a, b, activeSession("room-1", "u1", "u2")))

	// The same pair cannot be claimed twice.
	err := s.ClaimPair(context.Background(), a, b, activeSession("room-2", "u1", "u2"))
	require.ErrorIs(t, err, ErrClaimConflict)

	session, err := s.Get(context.Background(), "room-1")
	require.NoError(t, err)
	require.Equal(t, models.SessionActive, session.Status)

	_, err = s.Get(context.Background(), "room-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClaimPairFailsOnCancelledTicket(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	a := waitingTicket(t, s, "u1", base)
	b := waitingTicket(t, s, "u2", base.Add(time.Second))

	require.NoError(t, s.Cancel(context.Background(), "u2"))

	err := s.ClaimPair(context.Background(), a, b, activeSession("room-1", "u1", "u2"))
	require.ErrorIs(t, err, ErrClaimConflict)

	// The untouched ticket is still claimable with a fresh partner.
	c := waitingTicket(t, s, "u3", base.Add(2*time.Second))
	require.NoError(t, s.ClaimPair(context.Background(), a, c, activeSession("room-2", "u1", "u3")))
}

func TestCancelOnlyAffectsWaitingTickets(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	a := waitingTicket(t, s, "u1", base)
	b := waitingTicket(t, s, "u2", base.Add(time.Second))
	require.NoError(t, s.ClaimPair(context.Background(), a, b, activeSession("room-1", "u1", "u2")))

	// Cancel after claim is a no-op; the claim stands.
	require.NoError(t, s.Cancel(context.Background(), "u1"))

	_, err := s.Active(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteExpired(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()

	stale := &models.Ticket{
		UserID:     "stale",
		Status:     models.TicketWaiting,
		EnqueuedAt: base,
		ExpiresAt:  base.Add(time.Minute),
	}
	require.NoError(t, s.Insert(context.Background(), stale))
	waitingTicket(t, s, "fresh", base)

	deleted, err := s.DeleteExpired(context.Background(), base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	waiting, err := s.Waiting(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	require.Equal(t, "fresh", waiting[0].UserID)
}

func TestCompleteIsSingleShot(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	a := waitingTicket(t, s, "u1", base)
	b := waitingTicket(t, s, "u2", base.Add(time.Second))
	require.NoError(t, s.ClaimPair(context.Background(), a, b, activeSession("room-1", "u1", "u2")))

	ended, err := s.Complete(context.Background(), "room-1", "u1", time.Now())
	require.NoError(t, err)
	require.Equal(t, models.SessionCompleted, ended.Status)
	require.Equal(t, "u1", ended.EndedBy)

	_, err = s.Complete(context.Background(), "room-1", "u2", time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementMessagesOnlyOnActiveSessions(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	a := waitingTicket(t, s, "u1", base)
	b := waitingTicket(t, s, "u2", base.Add(time.Second))
	require.NoError(t, s.ClaimPair(context.Background(), a, b, activeSession("room-1", "u1", "u2")))

	count, err := s.IncrementMessages(context.Background(), "room-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	_, err = s.Complete(context.Background(), "room-1", "u1", time.Now())
	require.NoError(t, err)

	_, err = s.IncrementMessages(context.Background(), "room-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListForUserNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()

	older := activeSession("room-old", "u1", "u2")
	older.CreatedAt = base
	newer := activeSession("room-new", "u1", "u3")
	newer.CreatedAt = base.Add(time.Minute)

	a := waitingTicket(t, s, "u1", base)
	b := waitingTicket(t, s, "u2", base.Add(time.Second))
	require.NoError(t, s.ClaimPair(context.Background(), a, b, older))
	_, err := s.Complete(context.Background(), "room-old", "u1", base.Add(30*time.Second))
	require.NoError(t, err)

	c := waitingTicket(t, s, "u1", base.Add(2*time.Second))
	d := waitingTicket(t, s, "u3", base.Add(3*time.Second))
	require.NoError(t, s.ClaimPair(context.Background(), c, d, newer))

	sessions, err := s.ListForUser(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "room-new", sessions[0].RoomID)
	require.Equal(t, "room-old", sessions[1].RoomID)
}
