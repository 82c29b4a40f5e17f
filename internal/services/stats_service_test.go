package services

import (
	"context"
	"testing"

	"strangerchat/internal/store"

	"github.com/stretchr/testify/require"
)

func newTestStats() *StatsService {
	return NewStatsService(store.NewMemoryStatsView(store.NewMemoryStore()))
}

func TestGetUserStatisticsLazyInit(t *testing.T) {
	stats := newTestStats()

	s, err := stats.GetUserStatistics(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", s.UserID)
	require.Zero(t, s.TotalChats)
	require.Zero(t, s.AverageMessagesPerChat)

	// The zeroed record is persisted, so a second read hits the store.
	again, err := stats.GetUserStatistics(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, s.UserID, again.UserID)
}

func TestLifecycleCounters(t *testing.T) {
	stats := newTestStats()
	ctx := context.Background()

	require.NoError(t, stats.OnChatStarted(ctx, "u1"))
	require.NoError(t, stats.OnMessageSent(ctx, "u1"))
	require.NoError(t, stats.OnMessageSent(ctx, "u1"))
	require.NoError(t, stats.OnChatEnded(ctx, "u1", 2, 1.5))

	s, err := stats.GetUserStatistics(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), s.TotalChats)
	require.Equal(t, int64(1), s.CompletedChats)
	require.Zero(t, s.ActiveChats)
	require.Equal(t, int64(2), s.TotalMessages)
	require.False(t, s.LastActivity.IsZero())
}

func TestIncrementalMean(t *testing.T) {
	stats := newTestStats()
	ctx := context.Background()

	require.NoError(t, stats.OnChatEnded(ctx, "u1", 10, 5))
	require.NoError(t, stats.OnChatEnded(ctx, "u1", 20, 15))

	s, err := stats.GetUserStatistics(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), s.CompletedChats)
	require.InDelta(t, 15.0, s.AverageMessagesPerChat, 1e-9)
	require.InDelta(t, 10.0, s.AverageChatDuration, 1e-9)

	require.NoError(t, stats.OnChatEnded(ctx, "u1", 0, 0))
	s, err = stats.GetUserStatistics(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(3), s.CompletedChats)
	require.InDelta(t, 10.0, s.AverageMessagesPerChat, 1e-9)
	require.InDelta(t, 20.0/3.0, s.AverageChatDuration, 1e-9)
}

func TestActiveChatsNeverNegative(t *testing.T) {
	stats := newTestStats()
	ctx := context.Background()

	// Ending a chat the aggregator never saw start must not underflow.
	require.NoError(t, stats.OnChatEnded(ctx, "u1", 1, 1))

	s, err := stats.GetUserStatistics(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, s.ActiveChats)
	require.Equal(t, int64(1), s.CompletedChats)
}
