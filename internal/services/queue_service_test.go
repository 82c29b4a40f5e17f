package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"strangerchat/internal/store"

	"github.com/stretchr/testify/require"
)

func TestEnqueueRejectsDuplicate(t *testing.T) {
	memory := store.NewMemoryStore()
	queue := NewQueueService(memory, nil, time.Minute)

	ticket, err := queue.Enqueue(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, ticket.ID.IsZero())
	require.True(t, ticket.IsActive())

	_, err = queue.Enqueue(context.Background(), "u1")
	require.ErrorIs(t, err, store.ErrAlreadyQueued)
}

func TestEnqueueRequiresUserID(t *testing.T) {
	queue := NewQueueService(store.NewMemoryStore(), nil, time.Minute)

	_, err := queue.Enqueue(context.Background(), "")
	require.Error(t, err)
}

func TestCancelIsIdempotent(t *testing.T) {
	memory := store.NewMemoryStore()
	queue := NewQueueService(memory, nil, time.Minute)

	_, err := queue.Enqueue(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, queue.Cancel(context.Background(), "u1"))
	require.NoError(t, queue.Cancel(context.Background(), "u1"))
	require.NoError(t, queue.Cancel(context.Background(), "never-queued"))

	// The slot is free again after cancel.
	_, err = queue.Enqueue(context.Background(), "u1")
	require.NoError(t, err)
}

func TestStatusReportsPosition(t *testing.T) {
	memory := store.NewMemoryStore()
	queue := NewQueueService(memory, nil, time.Minute)

	base := time.Now()
	queue.now = func() time.Time { return base }
	_, err := queue.Enqueue(context.Background(), "u1")
	require.NoError(t, err)

	queue.now = func() time.Time { return base.Add(time.Second) }
	_, err = queue.Enqueue(context.Background(), "u2")
	require.NoError(t, err)

	status, err := queue.Status(context.Background(), "u2")
	require.NoError(t, err)
	require.Equal(t, 2, status.Position)
	require.Equal(t, 2, status.QueueSize)
	require.Positive(t, status.EstimatedWait)

	_, err = queue.Status(context.Background(), "u3")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWritesRefusedWhileStoreOffline(t *testing.T) {
	memory := store.NewMemoryStore()
	prober := &fakeProber{err: errors.New("down")}
	monitor := NewConnectionMonitor(prober, fastOptions(3))
	queue := NewQueueService(memory, monitor, time.Minute)

	// Unknown state does not block writes.
	_, err := queue.Enqueue(context.Background(), "u1")
	require.NoError(t, err)

	monitor.CheckConnection()
	_, err = queue.Enqueue(context.Background(), "u2")
	require.ErrorIs(t, err, ErrStoreOffline)
	require.ErrorIs(t, queue.Cancel(context.Background(), "u1"), ErrStoreOffline)

	prober.setErr(nil)
	monitor.CheckConnection()
	_, err = queue.Enqueue(context.Background(), "u2")
	require.NoError(t, err)
}

func TestCleanupExpiredDropsStaleTickets(t *testing.T) {
	memory := store.NewMemoryStore()
	queue := NewQueueService(memory, nil, time.Minute)

	base := time.Now()
	queue.now = func() time.Time { return base }
	_, err := queue.Enqueue(context.Background(), "stale")
	require.NoError(t, err)

	queue.now = func() time.Time { return base.Add(30 * time.Second) }
	_, err = queue.Enqueue(context.Background(), "fresh")
	require.NoError(t, err)

	queue.now = func() time.Time { return base.Add(70 * time.Second) }
	deleted, err := queue.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	waiting, err := memory.Waiting(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	require.Equal(t, "fresh", waiting[0].UserID)
}

func TestEnqueueFiresHook(t *testing.T) {
	memory := store.NewMemoryStore()
	queue := NewQueueService(memory, nil, time.Minute)

	fired := 0
	queue.SetEnqueueHook(func() { fired++ })

	_, err := queue.Enqueue(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, fired)

	// A rejected enqueue must not trigger a pairing pass.
	_, err = queue.Enqueue(context.Background(), "u1")
	require.ErrorIs(t, err, store.ErrAlreadyQueued)
	require.Equal(t, 1, fired)
}
