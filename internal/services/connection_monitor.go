package services

import (
	"context"
	"sync"
	"time"

	"strangerchat/internal/models"
	"strangerchat/internal/store"
	"strangerchat/pkg/logger"
)

// RetryDelayFunc computes the delay before retry number attempt (1-based).
// The default policy is a fixed interval; exponential backoff can be swapped
// in without touching the state machine.
type RetryDelayFunc func(attempt int) time.Duration

// FixedDelay returns the same delay for every retry.
func FixedDelay(d time.Duration) RetryDelayFunc {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles the delay per retry, capped at max.
func ExponentialBackoff(base, max time.Duration) RetryDelayFunc {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// ConnectionListener receives status snapshots on transitions.
type ConnectionListener func(status models.ConnectionStatus)

// MonitorOptions configures the connection monitor.
type MonitorOptions struct {
	CheckInterval time.Duration
	RetryDelay    RetryDelayFunc
	MaxRetries    int
	ProbeTimeout  time.Duration
}

// DefaultMonitorOptions mirrors the reference behavior: fixed-delay retries
// and an explicit per-probe timeout so a dead store cannot hang a check.
func DefaultMonitorOptions() MonitorOptions {
	return MonitorOptions{
		CheckInterval: 30 * time.Second,
		RetryDelay:    FixedDelay(5 * time.Second),
		MaxRetries:    5,
		ProbeTimeout:  10 * time.Second,
	}
}

type listenerEntry struct {
	id int
	fn ConnectionListener
}

// ConnectionMonitor owns the process-wide belief about backing-store
// reachability. Probe errors are classified and delivered to listeners as
// status objects; they never escape the monitor as raw store errors.
type ConnectionMonitor struct {
	prober store.Prober
	opts   MonitorOptions

	mu        sync.Mutex
	status    models.ConnectionStatus
	listeners []listenerEntry
	nextID    int
	running   bool
	timer     *time.Timer
}

// NewConnectionMonitor creates a monitor in the Unknown state. Nothing is
// probed until CheckConnection or Start is called.
func NewConnectionMonitor(prober store.Prober, opts MonitorOptions) *ConnectionMonitor {
	if opts.RetryDelay == nil {
		opts.RetryDelay = FixedDelay(5 * time.Second)
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 30 * time.Second
	}
	return &ConnectionMonitor{
		prober: prober,
		opts:   opts,
		status: models.ConnectionStatus{State: models.StateUnknown},
	}
}

// Status returns the current status snapshot.
func (m *ConnectionMonitor) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connected reports whether the last probe succeeded.
func (m *ConnectionMonitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.Connected
}

// AddConnectionListener registers fn and synchronously delivers the current
// status, so a subscriber arriving mid-outage is not blind to it. The
// returned id is accepted by RemoveConnectionListener.
func (m *ConnectionMonitor) AddConnectionListener(fn ConnectionListener) int {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	current := m.status
	m.mu.Unlock()

	invokeListener(fn, current)
	return id
}

// RemoveConnectionListener deregisters a listener. Unknown ids are ignored;
// calling it from inside a listener callback is safe.
func (m *ConnectionMonitor) RemoveConnectionListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, entry := range m.listeners {
		if entry.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// CheckConnection performs one probe and applies the state transition.
// Returns whether the store is reachable.
func (m *ConnectionMonitor) CheckConnection() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.ProbeTimeout)
	defer cancel()

	err := m.prober.Probe(ctx)

	m.mu.Lock()
	prev := m.status
	now := time.Now()

	if err == nil {
		m.status = models.ConnectionStatus{
			State:         models.StateConnected,
			Connected:     true,
			LastConnected: &now,
			RetryCount:    0,
			CheckedAt:     now,
		}
	} else {
		code := store.Classify(err)
		next := models.ConnectionStatus{
			Connected:     false,
			LastConnected: prev.LastConnected,
			Error:         err.Error(),
			ErrorCode:     code,
			RetryCount:    prev.RetryCount,
			CheckedAt:     now,
		}

		switch {
		case !m.running:
			next.State = models.StateDisconnected
		case prev.RetryCount >= m.opts.MaxRetries:
			next.State = models.StateFailed
			next.MaxRetriesReached = true
			m.running = false
		default:
			next.State = models.StateRetrying
			next.RetryCount = prev.RetryCount + 1
		}
		m.status = next
	}

	current := m.status
	changed := current.State != prev.State || current.Error != prev.Error
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if changed {
		logger.LogConnectionEvent(string(current.State), current.RetryCount, current.Error)
		for _, entry := range listeners {
			invokeListener(entry.fn, current)
		}
	}

	return current.Connected
}

// StartConnectionCheck begins periodic probing. Calling it while running is
// a no-op; calling it after the monitor reached Failed resets the retry
// budget and resumes.
func (m *ConnectionMonitor) StartConnectionCheck() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	if m.status.State == models.StateFailed {
		m.status.RetryCount = 0
		m.status.MaxRetriesReached = false
	}
	m.mu.Unlock()

	go m.checkAndReschedule()
}

// StopConnectionCheck halts periodic probing and cancels any pending retry
// timer so no stray notification fires afterwards. Safe to call repeatedly.
func (m *ConnectionMonitor) StopConnectionCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *ConnectionMonitor) checkAndReschedule() {
	m.CheckConnection()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	var delay time.Duration
	switch m.status.State {
	case models.StateRetrying:
		delay = m.opts.RetryDelay(m.status.RetryCount)
	case models.StateConnected:
		delay = m.opts.CheckInterval
	default:
		return
	}

	m.timer = time.AfterFunc(delay, m.checkAndReschedule)
}

// snapshotListeners must be called with m.mu held. Notification iterates the
// snapshot so listeners may add or remove listeners without corrupting the
// live slice.
func (m *ConnectionMonitor) snapshotListeners() []listenerEntry {
	snapshot := make([]listenerEntry, len(m.listeners))
	copy(snapshot, m.listeners)
	return snapshot
}

// invokeListener isolates listener panics so one faulty observer cannot
// block notification of the others.
func invokeListener(fn ConnectionListener, status models.ConnectionStatus) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Connection listener panicked")
		}
	}()
	fn(status)
}
