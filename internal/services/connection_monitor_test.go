package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"strangerchat/internal/models"

	"github.com/stretchr/testify/require"
)

// fakeProber fails or succeeds on demand and counts probes.
type fakeProber struct {
	mu    sync.Mutex
	err   error
	calls int64
}

func (p *fakeProber) Probe(ctx context.Context) error {
	atomic.AddInt64(&p.calls, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProber) callCount() int64 {
	return atomic.LoadInt64(&p.calls)
}

// statusRecorder collects listener notifications.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []models.ConnectionStatus
}

func (r *statusRecorder) record(status models.ConnectionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) all() []models.ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ConnectionStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

func fastOptions(maxRetries int) MonitorOptions {
	return MonitorOptions{
		CheckInterval: 5 * time.Millisecond,
		RetryDelay:    FixedDelay(time.Millisecond),
		MaxRetries:    maxRetries,
		ProbeTimeout:  time.Second,
	}
}

func TestCheckConnectionSuccess(t *testing.T) {
	prober := &fakeProber{}
	monitor := NewConnectionMonitor(prober, fastOptions(3))

	require.Equal(t, models.StateUnknown, monitor.Status().State)

	require.True(t, monitor.CheckConnection())

	status := monitor.Status()
	require.Equal(t, models.StateConnected, status.State)
	require.True(t, status.Connected)
	require.NotNil(t, status.LastConnected)
	require.Zero(t, status.RetryCount)
}

func TestCheckConnectionFailureWhileIdle(t *testing.T) {
	prober := &fakeProber{err: errors.New("connection refused")}
	monitor := NewConnectionMonitor(prober, fastOptions(3))

	require.False(t, monitor.CheckConnection())

	status := monitor.Status()
	require.Equal(t, models.StateDisconnected, status.State)
	require.False(t, status.Connected)
	require.Equal(t, "connection refused", status.Error)
	require.Zero(t, status.RetryCount)
}

func TestListenerReplayOnAdd(t *testing.T) {
	prober := &fakeProber{err: errors.New("down")}
	monitor := NewConnectionMonitor(prober, fastOptions(3))
	monitor.CheckConnection()

	recorder := &statusRecorder{}
	monitor.AddConnectionListener(recorder.record)

	// The current status is delivered synchronously, before any transition.
	statuses := recorder.all()
	require.Len(t, statuses, 1)
	require.Equal(t, models.StateDisconnected, statuses[0].State)
	require.Equal(t, "down", statuses[0].Error)
}

func TestNotificationsAreEdgeTriggered(t *testing.T) {
	prober := &fakeProber{err: errors.New("down")}
	monitor := NewConnectionMonitor(prober, fastOptions(3))

	recorder := &statusRecorder{}
	monitor.AddConnectionListener(recorder.record)

	monitor.CheckConnection()
	monitor.CheckConnection()
	monitor.CheckConnection()

	// One replay on add plus one transition Unknown -> Disconnected. The
	// repeated identical failures must not re-notify.
	require.Len(t, recorder.all(), 2)

	prober.setErr(nil)
	monitor.CheckConnection()

	statuses := recorder.all()
	require.Len(t, statuses, 3)
	require.Equal(t, models.StateConnected, statuses[2].State)
}

func TestRetriesAreBounded(t *testing.T) {
	prober := &fakeProber{err: errors.New("down")}
	monitor := NewConnectionMonitor(prober, fastOptions(3))

	monitor.StartConnectionCheck()
	defer monitor.StopConnectionCheck()

	require.Eventually(t, func() bool {
		return monitor.Status().State == models.StateFailed
	}, time.Second, time.Millisecond)

	status := monitor.Status()
	require.True(t, status.MaxRetriesReached)
	require.Equal(t, 3, status.RetryCount)

	// Initial check plus MaxRetries retries, then probing stops.
	settled := prober.callCount()
	require.Equal(t, int64(4), settled)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, settled, prober.callCount())
}

func TestStartAfterFailedResetsRetryBudget(t *testing.T) {
	prober := &fakeProber{err: errors.New("down")}
	monitor := NewConnectionMonitor(prober, fastOptions(2))

	monitor.StartConnectionCheck()
	require.Eventually(t, func() bool {
		return monitor.Status().State == models.StateFailed
	}, time.Second, time.Millisecond)

	prober.setErr(nil)
	monitor.StartConnectionCheck()
	defer monitor.StopConnectionCheck()

	require.Eventually(t, func() bool {
		return monitor.Status().State == models.StateConnected
	}, time.Second, time.Millisecond)
	require.False(t, monitor.Status().MaxRetriesReached)
}

func TestStopCancelsPendingRetry(t *testing.T) {
	prober := &fakeProber{err: errors.New("down")}
	monitor := NewConnectionMonitor(prober, fastOptions(100))

	monitor.StartConnectionCheck()
	require.Eventually(t, func() bool {
		return prober.callCount() > 0
	}, time.Second, time.Millisecond)

	monitor.StopConnectionCheck()

	time.Sleep(10 * time.Millisecond)
	settled := prober.callCount()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, settled, prober.callCount())
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	prober := &fakeProber{}
	monitor := NewConnectionMonitor(prober, fastOptions(3))

	monitor.AddConnectionListener(func(models.ConnectionStatus) {
		panic("boom")
	})
	recorder := &statusRecorder{}
	monitor.AddConnectionListener(recorder.record)

	monitor.CheckConnection()

	statuses := recorder.all()
	require.Len(t, statuses, 2)
	require.Equal(t, models.StateConnected, statuses[1].State)
}

func TestRemoveConnectionListener(t *testing.T) {
	prober := &fakeProber{}
	monitor := NewConnectionMonitor(prober, fastOptions(3))

	recorder := &statusRecorder{}
	id := monitor.AddConnectionListener(recorder.record)
	monitor.RemoveConnectionListener(id)
	monitor.RemoveConnectionListener(id) // unknown id is ignored

	monitor.CheckConnection()

	// Only the synchronous replay from AddConnectionListener.
	require.Len(t, recorder.all(), 1)
}

func TestRemoveListenerFromCallback(t *testing.T) {
	prober := &fakeProber{err: errors.New("down")}
	monitor := NewConnectionMonitor(prober, fastOptions(3))

	var fired int64
	var id int
	id = monitor.AddConnectionListener(func(models.ConnectionStatus) {
		atomic.AddInt64(&fired, 1)
		monitor.RemoveConnectionListener(id)
	})

	monitor.CheckConnection()
	prober.setErr(nil)
	monitor.CheckConnection()

	// Replay on add fires before id is known, the first transition fires and
	// removes the listener, the second transition must not reach it.
	require.Equal(t, int64(2), atomic.LoadInt64(&fired))
}

func TestExponentialBackoff(t *testing.T) {
	delay := ExponentialBackoff(time.Second, 10*time.Second)

	require.Equal(t, time.Second, delay(1))
	require.Equal(t, 2*time.Second, delay(2))
	require.Equal(t, 4*time.Second, delay(3))
	require.Equal(t, 8*time.Second, delay(4))
	require.Equal(t, 10*time.Second, delay(5))
	require.Equal(t, 10*time.Second, delay(8))
}
