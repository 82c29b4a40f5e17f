package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"strangerchat/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is a process-local implementation of Tickets, Sessions and
// Stats with the same conditional-claim semantics as MongoStore. It backs
// tests and local runs without a Mongo deployment.
type MemoryStore struct {
	mu       sync.Mutex
	tickets  map[primitive.ObjectID]*models.Ticket
	sessions map[string]*models.ChatSession
	stats    map[string]*models.UserStatistics
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[primitive.ObjectID]*models.Ticket),
		sessions: make(map[string]*models.ChatSession),
		stats:    make(map[string]*models.UserStatistics),
	}
}

// Tickets

func (m *MemoryStore) Insert(ctx context.Context, ticket *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tickets {
		if t.UserID == ticket.UserID && t.Status == models.TicketWaiting {
			return ErrAlreadyQueued
		}
	}

	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}

	copied := *ticket
	m.tickets[ticket.ID] = &copied
	return nil
}

func (m *MemoryStore) Cancel(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tickets {
		if t.UserID == userID && t.Status == models.TicketWaiting {
			t.Status = models.TicketCancelled
		}
	}
	return nil
}

func (m *MemoryStore) Active(ctx context.Context, userID string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tickets {
		if t.UserID == userID && t.Status == models.TicketWaiting {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Waiting(ctx context.Context, limit int64) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	waiting := make([]models.Ticket, 0)
	for _, t := range m.tickets {
		if t.Status == models.TicketWaiting {
			waiting = append(waiting, *t)
		}
	}

	sort.Slice(waiting, func(i, j int) bool {
		if !waiting[i].EnqueuedAt.Equal(waiting[j].EnqueuedAt) {
			return waiting[i].EnqueuedAt.Before(waiting[j].EnqueuedAt)
		}
		return waiting[i].ID.Hex() < waiting[j].ID.Hex()
	})

	if limit > 0 && int64(len(waiting)) > limit {
		waiting = waiting[:limit]
	}
	return waiting, nil
}

func (m *MemoryStore) ClaimPair(ctx context.Context, first, second models.Ticket, session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, okA := m.tickets[first.ID]
	b, okB := m.tickets[second.ID]
	if !okA || !okB || a.Status != models.TicketWaiting || b.Status != models.TicketWaiting {
		return ErrClaimConflict
	}

	now := time.Now()
	a.Status = models.TicketClaimed
	a.ClaimedAt = &now
	b.Status = models.TicketClaimed
	b.ClaimedAt = &now

	copied := *session
	m.sessions[session.RoomID] = &copied
	return nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, t := range m.tickets {
		if t.Status == models.TicketWaiting && now.After(t.ExpiresAt) {
			delete(m.tickets, id)
			deleted++
		}
	}
	return deleted, nil
}

// Sessions

func (m *MemoryStore) Get(ctx context.Context, roomID string) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MemoryStore) Complete(ctx context.Context, roomID, endedBy string, endedAt time.Time) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok || s.Status != models.SessionActive {
		return nil, ErrNotFound
	}

	s.Status = models.SessionCompleted
	s.EndedAt = &endedAt
	s.EndedBy = endedBy
	s.Duration = int64(endedAt.Sub(s.CreatedAt).Seconds())

	copied := *s
	return &copied, nil
}

func (m *MemoryStore) IncrementMessages(ctx context.Context, roomID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok || s.Status != models.SessionActive {
		return 0, ErrNotFound
	}

	s.MessageCount++
	return s.MessageCount, nil
}

func (m *MemoryStore) ActiveForUser(ctx context.Context, userID string) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Status == models.SessionActive && s.HasParticipant(userID) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListForUser(ctx context.Context, userID string, limit int64) ([]models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]models.ChatSession, 0)
	for _, s := range m.sessions {
		if s.HasParticipant(userID) {
			sessions = append(sessions, *s)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	if limit > 0 && int64(len(sessions)) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// Stats

func (m *MemoryStore) GetStats(ctx context.Context, userID string) (*models.UserStatistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MemoryStore) SaveStats(ctx context.Context, stats *models.UserStatistics) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *stats
	m.stats[stats.UserID] = &copied
	return nil
}

// MemoryStatsView adapts MemoryStore to the Stats interface, mirroring the
// Mongo facade.
type MemoryStatsView struct {
	store *MemoryStore
}

// NewMemoryStatsView returns the Stats facade over store.
func NewMemoryStatsView(store *MemoryStore) *MemoryStatsView {
	return &MemoryStatsView{store: store}
}

func (v *MemoryStatsView) Get(ctx context.Context, userID string) (*models.UserStatistics, error) {
	return v.store.GetStats(ctx, userID)
}

func (v *MemoryStatsView) Save(ctx context.Context, stats *models.UserStatistics) error {
	return v.store.SaveStats(ctx, stats)
}
