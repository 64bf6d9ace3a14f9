package runner

import (
	"context"
	"errors"
	"time"

	"github.com/nholik/svc-watchdog/internal/healthcheck"
	"github.com/nholik/svc-watchdog/internal/manager"
	"github.com/nholik/svc-watchdog/internal/metrics"
	"github.com/nholik/svc-watchdog/internal/watchdog"
	"github.com/rs/zerolog"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Runner re-invokes the watchdog on a fixed interval. It is the in-process
// equivalent of the external timer the one-shot mode relies on; the watchdog
// itself stays single-attempt per invocation.
type Runner struct {
	logger        zerolog.Logger
	pollInterval  time.Duration
	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error
	watchdog      *watchdog.Watchdog
	service       string
	metrics       *metrics.Metrics
	tracker       *healthcheck.Tracker
	lastState     manager.State
	hasLast       bool
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithRunOnce overrides the single-cycle execution step.
func WithRunOnce(runOnce func(context.Context) error) Option {
	return func(r *Runner) {
		r.runOnce = runOnce
	}
}

// WithWatchdog sets the watchdog and service name used by the default RunOnce.
func WithWatchdog(wd *watchdog.Watchdog, service string) Option {
	return func(r *Runner) {
		r.watchdog = wd
		r.service = service
	}
}

// WithMetrics enables Prometheus observation of each cycle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracker enables cycle recording for the health endpoints.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// New constructs a Runner with the given logger and poll interval.
func New(logger zerolog.Logger, pollInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		logger:       logger,
		pollInterval: pollInterval,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}
	r.runOnce = r.defaultRunOnce

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run starts the main loop and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	// Run immediately on startup
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial check cycle failed")
	}

	ticker := r.tickerFactory(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("check cycle failed")
			}
		}
	}
}

// RunOnce executes a single cycle of the runner.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.runOnce(ctx)
}

func (r *Runner) defaultRunOnce(ctx context.Context) error {
	if r.watchdog == nil {
		return nil
	}

	start := time.Now()
	result := r.watchdog.EnsureRunning(ctx, r.service)
	duration := time.Since(start)

	r.observe(result, duration)
	r.noteTransition(result)
	r.tracker.RecordCheck(duration, result.Healthy())

	if result.Err != nil {
		return wrapRuntime("check cycle", result.Err)
	}
	return nil
}

func (r *Runner) observe(result watchdog.CheckResult, duration time.Duration) {
	r.metrics.ObserveCheckDuration(duration)
	r.metrics.SetLastCheckTimestamp(time.Now().UTC())
	r.metrics.SetServiceUp(result.Service, result.Healthy())

	outcome := "healthy"
	switch {
	case result.Err != nil && result.Action == watchdog.ActionNone:
		outcome = "query_error"
		r.metrics.IncManagerErrors()
	case result.Throttled:
		outcome = "throttled"
		r.metrics.IncRestarts(result.Service, "throttled")
	case result.Action == watchdog.ActionRestartIssued:
		outcome = "restarted"
		r.metrics.IncRestarts(result.Service, "success")
	case result.Action == watchdog.ActionRestartFailed:
		outcome = "restart_failed"
		r.metrics.IncRestarts(result.Service, "failure")
		r.metrics.IncManagerErrors()
	}
	r.metrics.IncChecks(result.Service, outcome)
}

// noteTransition logs recovered/went-down edges between consecutive cycles.
// State is tracked in memory only; a restart clears it.
func (r *Runner) noteTransition(result watchdog.CheckResult) {
	if result.Err != nil && result.Action == watchdog.ActionNone {
		// Query failed, nothing was observed.
		return
	}

	current := result.State
	previous, had := r.lastState, r.hasLast
	r.lastState = current
	r.hasLast = true

	if !had || previous == current {
		return
	}
	if current == manager.StateRunning {
		r.logger.Info().
			Str("service", result.Service).
			Str("previous_state", string(previous)).
			Msg("service recovered")
		return
	}
	if previous == manager.StateRunning {
		r.logger.Warn().
			Str("service", result.Service).
			Str("state", string(current)).
			Msg("service went down")
	}
}
