package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"strangerchat/internal/models"
	"strangerchat/internal/store"

	"github.com/stretchr/testify/require"
)

// endRecorder captures session-ended notifications.
type endRecorder struct {
	mu    sync.Mutex
	ended []string
}

func (r *endRecorder) NotifySessionEnded(session models.ChatSession, endedBy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, session.RoomID+":"+endedBy)
}

func (r *endRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ended)
}

// startSession pairs two users through the matchmaker so the session exists
// in the store the same way it would in production.
func startSession(t *testing.T, memory *store.MemoryStore, userA, userB string) models.ChatSession {
	t.Helper()
	recorder := &sessionRecorder{}
	matchmaker := NewMatchmaker(memory, nil, recorder, time.Second)

	base := time.Now()
	enqueueAt(t, memory, userA, base)
	enqueueAt(t, memory, userB, base.Add(time.Second))

	paired, err := matchmaker.Pair(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, paired)
	return recorder.all()[0]
}

func TestEndChatCompletesSession(t *testing.T) {
	memory := store.NewMemoryStore()
	stats := NewStatsService(store.NewMemoryStatsView(memory))
	recorder := &endRecorder{}
	chat := NewChatService(memory, stats, recorder)

	session := startSession(t, memory, "u1", "u2")

	ended, err := chat.EndChat(context.Background(), session.RoomID, "u1")
	require.NoError(t, err)
	require.Equal(t, models.SessionCompleted, ended.Status)
	require.Equal(t, "u1", ended.EndedBy)
	require.NotNil(t, ended.EndedAt)
	require.Equal(t, 1, recorder.count())

	for _, userID := range []string{"u1", "u2"} {
		s, err := stats.GetUserStatistics(context.Background(), userID)
		require.NoError(t, err)
		require.Equal(t, int64(1), s.CompletedChats)
	}
}

func TestEndChatIsIdempotent(t *testing.T) {
	memory := store.NewMemoryStore()
	stats := NewStatsService(store.NewMemoryStatsView(memory))
	recorder := &endRecorder{}
	chat := NewChatService(memory, stats, recorder)

	session := startSession(t, memory, "u1", "u2")

	first, err := chat.EndChat(context.Background(), session.RoomID, "u1")
	require.NoError(t, err)

	// The partner ends concurrently-ish; they get the stored record back and
	// nothing is double counted or re-notified.
	second, err := chat.EndChat(context.Background(), session.RoomID, "u2")
	require.NoError(t, err)
	require.Equal(t, first.EndedBy, second.EndedBy)
	require.Equal(t, models.SessionCompleted, second.Status)
	require.Equal(t, 1, recorder.count())

	s, err := stats.GetUserStatistics(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), s.CompletedChats)
}

func TestEndChatUnknownRoom(t *testing.T) {
	chat := NewChatService(store.NewMemoryStore(), nil, nil)

	_, err := chat.EndChat(context.Background(), "no-such-room", "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordMessage(t *testing.T) {
	memory := store.NewMemoryStore()
	stats := NewStatsService(store.NewMemoryStatsView(memory))
	chat := NewChatService(memory, stats, nil)

	session := startSession(t, memory, "u1", "u2")

	require.NoError(t, chat.RecordMessage(context.Background(), session.RoomID, "u1"))
	require.NoError(t, chat.RecordMessage(context.Background(), session.RoomID, "u2"))
	require.NoError(t, chat.RecordMessage(context.Background(), session.RoomID, "u1"))

	stored, err := chat.GetSession(context.Background(), session.RoomID)
	require.NoError(t, err)
	require.Equal(t, int64(3), stored.MessageCount)

	s, err := stats.GetUserStatistics(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), s.TotalMessages)

	require.ErrorIs(t, chat.RecordMessage(context.Background(), "no-such-room", "u1"), store.ErrNotFound)
}

func TestActiveSessionAndListing(t *testing.T) {
	memory := store.NewMemoryStore()
	chat := NewChatService(memory, nil, nil)

	session := startSession(t, memory, "u1", "u2")

	active, err := chat.ActiveSession(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, session.RoomID, active.RoomID)

	_, err = chat.EndChat(context.Background(), session.RoomID, "u2")
	require.NoError(t, err)

	_, err = chat.ActiveSession(context.Background(), "u1")
	require.ErrorIs(t, err, store.ErrNotFound)

	sessions, err := chat.ListSessions(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, models.SessionCompleted, sessions[0].Status)
}
