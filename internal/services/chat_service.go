package services

import (
	"context"
	"fmt"
	"time"

	"strangerchat/internal/models"
	"strangerchat/internal/store"
	"strangerchat/pkg/logger"
)

// SessionNotifier tells the remaining participant their chat ended.
type SessionNotifier interface {
	NotifySessionEnded(session models.ChatSession, endedBy string)
}

// ChatService manages the lifecycle of established sessions and feeds the
// statistics aggregator. It never reopens a completed session.
type ChatService struct {
	sessions store.Sessions
	stats    *StatsService
	notifier SessionNotifier
}

// NewChatService creates the chat service. stats and notifier may be nil.
func NewChatService(sessions store.Sessions, stats *StatsService, notifier SessionNotifier) *ChatService {
	return &ChatService{
		sessions: sessions,
		stats:    stats,
		notifier: notifier,
	}
}

// EndChat completes the session identified by roomID. Ending an already
// completed session returns the stored record without error, so both
// participants may end concurrently.
func (s *ChatService) EndChat(ctx context.Context, roomID, userID string) (*models.ChatSession, error) {
	session, err := s.sessions.Complete(ctx, roomID, userID, time.Now())
	if err == store.ErrNotFound {
		// Either unknown or already completed by the partner.
		existing, getErr := s.sessions.Get(ctx, roomID)
		if getErr != nil {
			return nil, store.ErrNotFound
		}
		return existing, nil
	}
	if err != nil {
		logger.LogError(err, "Failed to end chat", map[string]interface{}{
			"room_id": roomID,
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to end chat: %w", err)
	}

	logger.LogChatEvent("chat_ended", roomID, userID, map[string]interface{}{
		"duration_seconds": session.Duration,
		"message_count":    session.MessageCount,
	})

	if s.stats != nil {
		durationMinutes := float64(session.Duration) / 60.0
		for _, participant := range session.Participants {
			if statErr := s.stats.OnChatEnded(ctx, participant, session.MessageCount, durationMinutes); statErr != nil {
				logger.LogError(statErr, "Failed to record chat end", map[string]interface{}{
					"user_id": participant,
				})
			}
		}
	}

	if s.notifier != nil {
		s.notifier.NotifySessionEnded(*session, userID)
	}

	return session, nil
}

// RecordMessage counts one message sent by userID in roomID, updating both
// the session counter and the sender's statistics.
func (s *ChatService) RecordMessage(ctx context.Context, roomID, userID string) error {
	if _, err := s.sessions.IncrementMessages(ctx, roomID); err != nil {
		if err == store.ErrNotFound {
			return err
		}
		return fmt.Errorf("failed to record message: %w", err)
	}

	if s.stats != nil {
		if err := s.stats.OnMessageSent(ctx, userID); err != nil {
			logger.LogError(err, "Failed to record message stat", map[string]interface{}{
				"user_id": userID,
			})
		}
	}
	return nil
}

// ActiveSession returns the user's current active session, or ErrNotFound.
func (s *ChatService) ActiveSession(ctx context.Context, userID string) (*models.ChatSession, error) {
	return s.sessions.ActiveForUser(ctx, userID)
}

// ListSessions returns the user's sessions, newest first.
func (s *ChatService) ListSessions(ctx context.Context, userID string, limit int64) ([]models.ChatSession, error) {
	return s.sessions.ListForUser(ctx, userID, limit)
}

// GetSession returns a session by room id.
func (s *ChatService) GetSession(ctx context.Context, roomID string) (*models.ChatSession, error) {
	return s.sessions.Get(ctx, roomID)
}
