package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes the latest check timing details.
type Snapshot struct {
	LastCheckTime   *time.Time `json:"last_check_time"`
	CheckDurationMS int64      `json:"check_duration_ms"`
	ServiceHealthy  bool       `json:"service_healthy"`
}

// Tracker records check timing for the daemon's own health endpoints.
type Tracker struct {
	mu             sync.RWMutex
	lastCheck      time.Time
	checkDuration  time.Duration
	serviceHealthy bool
	ready          bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordCheck updates check timing and readiness.
func (t *Tracker) RecordCheck(duration time.Duration, serviceHealthy bool) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	t.mu.Lock()
	t.lastCheck = now
	t.checkDuration = duration
	t.serviceHealthy = serviceHealthy
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastCheck.IsZero() {
		value := t.lastCheck
		last = &value
	}
	return Snapshot{
		LastCheckTime:   last,
		CheckDurationMS: int64(t.checkDuration / time.Millisecond),
		ServiceHealthy:  t.serviceHealthy,
	}
}

// Ready reports whether at least one check cycle has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last check completed within 2x the poll interval.
func (t *Tracker) Healthy(now time.Time, pollInterval time.Duration) bool {
	if t == nil {
		return false
	}
	if pollInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastCheck.IsZero() {
		return false
	}
	return now.Sub(t.lastCheck) <= 2*pollInterval
}
