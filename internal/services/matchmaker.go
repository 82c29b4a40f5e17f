package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"strangerchat/internal/models"
	"strangerchat/internal/store"
	"strangerchat/pkg/logger"

	"github.com/google/uuid"
)

// MatchNotifier pushes a freshly created session to both participants, e.g.
// over the websocket hub. Implementations must not block.
type MatchNotifier interface {
	NotifyMatch(session models.ChatSession)
}

// MatchCallback is delivered at most once when a session containing the
// subscribed user is created by this process.
type MatchCallback func(session models.ChatSession)

// Matchmaker consumes the waiting queue and turns pairs of tickets into chat
// sessions. Several matchmaker instances may run concurrently against the
// same store; the conditional claim guarantees no ticket is ever consumed
// twice.
type Matchmaker struct {
	tickets  store.Tickets
	stats    *StatsService
	notifier MatchNotifier

	interval   time.Duration
	batchLimit int64

	mu        sync.Mutex
	callbacks map[string][]MatchCallback

	trigger chan struct{}
	stop    chan struct{}
	stopped sync.Once
}

// NewMatchmaker creates a matchmaker. stats and notifier may be nil.
func NewMatchmaker(tickets store.Tickets, stats *StatsService, notifier MatchNotifier, interval time.Duration) *Matchmaker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Matchmaker{
		tickets:    tickets,
		stats:      stats,
		notifier:   notifier,
		interval:   interval,
		batchLimit: 50,
		callbacks:  make(map[string][]MatchCallback),
		trigger:    make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

// OnMatch registers a one-shot callback fired when a session containing
// userID is created by this matchmaker.
func (m *Matchmaker) OnMatch(userID string, fn MatchCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[userID] = append(m.callbacks[userID], fn)
}

// Trigger requests an immediate pairing pass from the background engine.
// Non-blocking; coalesces with an already pending request.
func (m *Matchmaker) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Run drives periodic pairing passes until Stop is called.
func (m *Matchmaker) Run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		case <-m.trigger:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if _, err := m.Pair(ctx); err != nil {
			logger.LogError(err, "Pairing pass failed", nil)
		}
		cancel()
	}
}

// Stop halts the background engine. Idempotent.
func (m *Matchmaker) Stop() {
	m.stopped.Do(func() { close(m.stop) })
}

// maxConflictRefetches bounds how often a single pass re-reads the queue
// after losing a claim race.
const maxConflictRefetches = 3

// Pair runs one pairing pass: waiting tickets oldest first, two at a time,
// each pair claimed atomically together with its session creation. A claim
// lost to a concurrent pass aborts that pair, and the pass re-reads the
// queue so the surviving ticket is retried against fresh candidates.
// Returns the number of sessions created.
func (m *Matchmaker) Pair(ctx context.Context) (int, error) {
	paired := 0

	for attempt := 0; attempt <= maxConflictRefetches; attempt++ {
		waiting, err := m.tickets.Waiting(ctx, m.batchLimit)
		if err != nil {
			return paired, fmt.Errorf("failed to read waiting tickets: %w", err)
		}

		conflicted := false
		for i := 0; i+1 < len(waiting); i += 2 {
			first, second := waiting[i], waiting[i+1]

			session := newSession(first.UserID, second.UserID)
			err := m.tickets.ClaimPair(ctx, first, second, &session)
			if err == store.ErrClaimConflict {
				// A concurrent pass consumed one of these tickets. The rest
				// of this view is stale too, so re-read and retry.
				conflicted = true
				break
			}
			if err != nil {
				return paired, fmt.Errorf("failed to claim pair: %w", err)
			}

			paired++
			m.deliverMatch(ctx, session, first, second)
		}

		if !conflicted {
			break
		}
	}

	return paired, nil
}

func newSession(userA, userB string) models.ChatSession {
	id := uuid.NewString()
	return models.ChatSession{
		ID:           id,
		RoomID:       id,
		Participants: []string{userA, userB},
		Status:       models.SessionActive,
		CreatedAt:    time.Now(),
	}
}

func (m *Matchmaker) deliverMatch(ctx context.Context, session models.ChatSession, first, second models.Ticket) {
	logger.LogChatEvent("match_created", session.RoomID, first.UserID, map[string]interface{}{
		"partner_id":   second.UserID,
		"queue_time_a": time.Since(first.EnqueuedAt).Milliseconds(),
		"queue_time_b": time.Since(second.EnqueuedAt).Milliseconds(),
	})

	if m.stats != nil {
		for _, userID := range session.Participants {
			if err := m.stats.OnChatStarted(ctx, userID); err != nil {
				logger.LogError(err, "Failed to record chat start", map[string]interface{}{
					"user_id": userID,
				})
			}
		}
	}

	if m.notifier != nil {
		m.notifier.NotifyMatch(session)
	}

	for _, userID := range session.Participants {
		for _, fn := range m.takeCallbacks(userID) {
			fn(session)
		}
	}
}

// takeCallbacks removes and returns the user's pending callbacks so each is
// delivered at most once.
func (m *Matchmaker) takeCallbacks(userID string) []MatchCallback {
	m.mu.Lock()
	defer m.mu.Unlock()

	callbacks := m.callbacks[userID]
	delete(m.callbacks, userID)
	return callbacks
}
