package watchdog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nholik/svc-watchdog/internal/manager"
	"github.com/rs/zerolog"
)

// Watchdog observes a service's run state through a Manager and issues a
// single restart when the service is not running. Invocations are stateless
// and independent; retrying is left to whatever re-invokes the watchdog.
type Watchdog struct {
	manager manager.Manager
	logger  zerolog.Logger
	status  io.Writer
	gate    func() bool
	now     func() time.Time
}

// Option customizes watchdog behavior.
type Option func(*Watchdog)

// WithStatusWriter overrides where the per-invocation status line is written.
func WithStatusWriter(w io.Writer) Option {
	return func(wd *Watchdog) {
		wd.status = w
	}
}

// WithRestartGate installs a gate consulted before issuing a restart.
// When the gate denies, the invocation reports the observed state without
// acting. Used by the daemon loop to throttle restart storms.
func WithRestartGate(gate func() bool) Option {
	return func(wd *Watchdog) {
		wd.gate = gate
	}
}

// WithClock overrides the time source used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(wd *Watchdog) {
		wd.now = now
	}
}

// New constructs a Watchdog over the given service manager.
func New(mgr manager.Manager, logger zerolog.Logger, opts ...Option) *Watchdog {
	wd := &Watchdog{
		manager: mgr,
		logger:  logger,
		status:  os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(wd)
	}
	return wd
}

// Check queries the service manager for the current state of the service.
func (w *Watchdog) Check(ctx context.Context, name string) (manager.State, error) {
	return w.manager.QueryStatus(ctx, name)
}

// Restart issues a single restart command for the service.
func (w *Watchdog) Restart(ctx context.Context, name string) error {
	return w.manager.Restart(ctx, name)
}

// EnsureRunning checks the service and, if it is not running, issues exactly
// one restart. It never retries; it emits exactly one status line per call.
func (w *Watchdog) EnsureRunning(ctx context.Context, name string) CheckResult {
	result := CheckResult{
		Service:   name,
		State:     manager.StateUnknown,
		Action:    ActionNone,
		Timestamp: w.now().UTC(),
	}

	state, err := w.Check(ctx, name)
	result.State = state
	if err != nil {
		result.Err = err
		w.logger.Error().Err(err).Str("service", name).Msg("status query failed")
		w.report(result)
		return result
	}

	if state == manager.StateRunning {
		w.logger.Debug().Str("service", name).Msg("service healthy")
		w.report(result)
		return result
	}

	if w.gate != nil && !w.gate() {
		result.Throttled = true
		w.logger.Warn().Str("service", name).Str("state", string(state)).Msg("restart throttled")
		w.report(result)
		return result
	}

	if err := w.Restart(ctx, name); err != nil {
		result.Action = ActionRestartFailed
		result.Err = err
		w.logger.Error().Err(err).Str("service", name).Str("state", string(state)).Msg("restart failed")
		w.report(result)
		return result
	}

	result.Action = ActionRestartIssued
	w.logger.Info().Str("service", name).Str("state", string(state)).Msg("restart issued")
	w.report(result)
	return result
}

func (w *Watchdog) report(result CheckResult) {
	if w.status == nil {
		return
	}
	fmt.Fprintln(w.status, result.StatusLine())
}
