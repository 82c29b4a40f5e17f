package services

import (
	"context"
	"fmt"
	"time"

	"strangerchat/internal/models"
	"strangerchat/internal/store"
	"strangerchat/pkg/logger"
)

// StatsService maintains per-user counters and running averages. Averages use
// the incremental-mean formula, so no session history is kept; within one
// process updates are serialized, but across processes concurrent updates to
// the same user remain approximate because the read-modify-write is not
// transactional.
type StatsService struct {
	stats store.Stats
	now   func() time.Time
}

// NewStatsService creates the aggregator over the given statistics store.
func NewStatsService(stats store.Stats) *StatsService {
	return &StatsService{
		stats: stats,
		now:   time.Now,
	}
}

// OnChatStarted records a new session for the user.
func (s *StatsService) OnChatStarted(ctx context.Context, userID string) error {
	stats, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	stats.TotalChats++
	stats.ActiveChats++
	stats.LastActivity = s.now()

	return s.save(ctx, stats)
}

// OnMessageSent records one sent message for the user.
func (s *StatsService) OnMessageSent(ctx context.Context, userID string) error {
	stats, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	stats.TotalMessages++
	stats.LastActivity = s.now()

	return s.save(ctx, stats)
}

// OnChatEnded records a completed session and folds the sample into the
// running averages: newAvg = (oldAvg*oldCompleted + sample) / (oldCompleted+1).
func (s *StatsService) OnChatEnded(ctx context.Context, userID string, messageCount int64, durationMinutes float64) error {
	stats, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	oldCompleted := float64(stats.CompletedChats)
	stats.AverageMessagesPerChat = (stats.AverageMessagesPerChat*oldCompleted + float64(messageCount)) / (oldCompleted + 1)
	stats.AverageChatDuration = (stats.AverageChatDuration*oldCompleted + durationMinutes) / (oldCompleted + 1)

	stats.CompletedChats++
	if stats.ActiveChats > 0 {
		stats.ActiveChats--
	}
	stats.LastActivity = s.now()

	return s.save(ctx, stats)
}

// GetUserStatistics returns the user's current snapshot, lazily persisting a
// zeroed record on first access so repeated reads are idempotent.
func (s *StatsService) GetUserStatistics(ctx context.Context, userID string) (*models.UserStatistics, error) {
	stats, err := s.stats.Get(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if err != store.ErrNotFound {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	stats = models.NewUserStatistics(userID)
	if err := s.save(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *StatsService) load(ctx context.Context, userID string) (*models.UserStatistics, error) {
	stats, err := s.stats.Get(ctx, userID)
	if err == store.ErrNotFound {
		return models.NewUserStatistics(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	return stats, nil
}

func (s *StatsService) save(ctx context.Context, stats *models.UserStatistics) error {
	if err := s.stats.Save(ctx, stats); err != nil {
		logger.LogError(err, "Failed to save statistics", map[string]interface{}{
			"user_id": stats.UserID,
		})
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	return nil
}
