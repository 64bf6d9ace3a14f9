package watchdog

import (
	"fmt"
	"time"

	"github.com/nholik/svc-watchdog/internal/manager"
)

// Action describes what the watchdog did about an observed state.
type Action string

const (
	ActionNone          Action = "none"
	ActionRestartIssued Action = "restart_issued"
	ActionRestartFailed Action = "restart_failed"
)

// CheckResult is the outcome of a single EnsureRunning invocation.
type CheckResult struct {
	Service   string
	State     manager.State
	Action    Action
	Timestamp time.Time
	Throttled bool
	Err       error
}

// Healthy reports whether the service was observed running.
func (r CheckResult) Healthy() bool {
	return r.Err == nil && r.State == manager.StateRunning
}

// StatusLine renders the result as the single human-readable report line
// emitted per invocation: "<timestamp> - <service> <outcome>".
func (r CheckResult) StatusLine() string {
	ts := r.Timestamp.Format(time.RFC3339)
	switch {
	case r.Err != nil && r.Action == ActionNone && !r.Throttled:
		return fmt.Sprintf("%s - %s status unknown: %v", ts, r.Service, r.Err)
	case r.Action == ActionRestartFailed:
		return fmt.Sprintf("%s - %s not running, restart failed: %v", ts, r.Service, r.Err)
	case r.Action == ActionRestartIssued:
		return fmt.Sprintf("%s - %s not running, restarting...", ts, r.Service)
	case r.Throttled:
		return fmt.Sprintf("%s - %s not running, restart throttled", ts, r.Service)
	default:
		return fmt.Sprintf("%s - %s is healthy", ts, r.Service)
	}
}
