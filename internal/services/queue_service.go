package services

import (
	"context"
	"fmt"
	"time"

	"strangerchat/internal/models"
	"strangerchat/internal/store"
	"strangerchat/pkg/logger"

	"github.com/samber/lo"
)

// ErrStoreOffline is returned when a write is refused because the monitor
// currently reports the backing store unreachable.
var ErrStoreOffline = fmt.Errorf("backing store is unreachable")

// QueueStatus describes a user's place in the waiting queue.
type QueueStatus struct {
	Position      int       `json:"position"`
	QueueSize     int       `json:"queue_size"`
	EstimatedWait int       `json:"estimated_wait_seconds"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// QueueService owns the waiting queue of pairing tickets.
type QueueService struct {
	tickets   store.Tickets
	monitor   *ConnectionMonitor
	ticketTTL time.Duration
	now       func() time.Time
	onEnqueue func()
}

// NewQueueService creates the queue service. monitor may be nil, in which
// case writes are never deferred.
func NewQueueService(tickets store.Tickets, monitor *ConnectionMonitor, ticketTTL time.Duration) *QueueService {
	if ticketTTL <= 0 {
		ticketTTL = 10 * time.Minute
	}
	return &QueueService{
		tickets:   tickets,
		monitor:   monitor,
		ticketTTL: ticketTTL,
		now:       time.Now,
	}
}

// SetEnqueueHook registers a callback fired after each successful enqueue,
// used by the matchmaker to trigger an immediate pairing pass.
func (s *QueueService) SetEnqueueHook(fn func()) {
	s.onEnqueue = fn
}

// Enqueue inserts a waiting ticket for userID. Fails with ErrAlreadyQueued
// when the user already holds an active ticket, and with ErrStoreOffline
// while the store is known to be down.
func (s *QueueService) Enqueue(ctx context.Context, userID string) (*models.Ticket, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if err := s.checkWritable(); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &models.Ticket{
		UserID:     userID,
		Status:     models.TicketWaiting,
		EnqueuedAt: now,
		ExpiresAt:  now.Add(s.ticketTTL),
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		if err == store.ErrAlreadyQueued {
			return nil, err
		}
		logger.LogError(err, "Failed to enqueue ticket", map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to enqueue: %w", err)
	}

	logger.LogUserAction(userID, "enqueued", map[string]interface{}{
		"ticket_id": ticket.ID.Hex(),
	})

	if s.onEnqueue != nil {
		s.onEnqueue()
	}
	return ticket, nil
}

// Cancel withdraws the user's waiting ticket. Cancelling an absent or
// already claimed ticket is a silent no-op, never an error.
func (s *QueueService) Cancel(ctx context.Context, userID string) error {
	if err := s.checkWritable(); err != nil {
		return err
	}

	if err := s.tickets.Cancel(ctx, userID); err != nil {
		logger.LogError(err, "Failed to cancel ticket", map[string]interface{}{
			"user_id": userID,
		})
		return fmt.Errorf("failed to cancel: %w", err)
	}

	logger.LogUserAction(userID, "queue_cancelled", nil)
	return nil
}

// Status reports the user's position among waiting tickets. ErrNotFound when
// the user is not queued.
func (s *QueueService) Status(ctx context.Context, userID string) (*QueueStatus, error) {
	waiting, err := s.tickets.Waiting(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	ticket, index, found := lo.FindIndexOf(waiting, func(t models.Ticket) bool {
		return t.UserID == userID
	})
	if !found {
		return nil, store.ErrNotFound
	}

	return &QueueStatus{
		Position:      index + 1,
		QueueSize:     len(waiting),
		EstimatedWait: estimateWait(index + 1),
		EnqueuedAt:    ticket.EnqueuedAt,
	}, nil
}

// CleanupExpired drops waiting tickets past their TTL.
func (s *QueueService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.tickets.DeleteExpired(ctx, s.now())
	if err != nil {
		logger.LogError(err, "Failed to cleanup expired tickets", nil)
		return 0, err
	}
	if deleted > 0 {
		logger.Info("Cleaned up expired queue tickets", map[string]interface{}{
			"deleted_count": deleted,
		})
	}
	return deleted, nil
}

func (s *QueueService) checkWritable() error {
	if s.monitor == nil {
		return nil
	}
	switch s.monitor.Status().State {
	case models.StateDisconnected, models.StateRetrying, models.StateFailed:
		return ErrStoreOffline
	}
	return nil
}

// estimateWait is a coarse heuristic: pairing consumes two tickets per pass,
// so wait grows with queue position.
func estimateWait(position int) int {
	base := 15 // seconds
	wait := base * ((position + 1) / 2)
	if wait > 300 {
		wait = 300
	}
	return wait
}
