package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nholik/svc-watchdog/internal/config"
	"github.com/nholik/svc-watchdog/internal/healthcheck"
	"github.com/nholik/svc-watchdog/internal/logging"
	"github.com/nholik/svc-watchdog/internal/manager"
	"github.com/nholik/svc-watchdog/internal/metrics"
	"github.com/nholik/svc-watchdog/internal/runner"
	"github.com/nholik/svc-watchdog/internal/server"
	"github.com/nholik/svc-watchdog/internal/watchdog"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	exitOK            = 0
	exitRestartFailed = 1
	exitQueryError    = 2
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New()
		bootLogger.Error().Err(err).Msg("configuration error")
		os.Exit(exitQueryError)
	}

	logger := logging.NewWithLevel(cfg.LogLevel)
	os.Exit(run(logger, cfg))
}

func run(logger zerolog.Logger, cfg config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := buildManager(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("manager", cfg.Manager).Msg("service manager init failed")
		return exitQueryError
	}
	defer mgr.Close()

	if cfg.OneShot() {
		wd := watchdog.New(mgr, logger)
		return exitCode(wd.EnsureRunning(ctx, cfg.Service))
	}

	collector := metrics.New()
	tracker := healthcheck.NewTracker()
	limiter := rate.NewLimiter(rate.Every(cfg.RestartRate), cfg.RestartBurst)
	wd := watchdog.New(mgr, logger, watchdog.WithRestartGate(limiter.Allow))

	server.Start(ctx, logger, cfg.PollInterval, tracker, collector, cfg.HealthPort, cfg.MetricsPort)

	r := runner.New(logger, cfg.PollInterval,
		runner.WithWatchdog(wd, cfg.Service),
		runner.WithMetrics(collector),
		runner.WithTracker(tracker),
	)

	logger.Info().
		Str("service", cfg.Service).
		Str("manager", cfg.Manager).
		Dur("poll_interval", cfg.PollInterval).
		Msg("svc-watchdog starting")

	if err := r.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("runner failed")
		return exitRestartFailed
	}
	return exitOK
}

func buildManager(ctx context.Context, cfg config.Config) (manager.Manager, error) {
	switch cfg.Manager {
	case config.ManagerDocker:
		return manager.NewDockerManager(ctx, cfg.DockerHost, cfg.ManagerTimeout)
	default:
		return manager.NewSystemdManager(cfg.ManagerTimeout), nil
	}
}

// Exit codes: 0 when the service is healthy or a restart was issued,
// 1 when the restart failed, 2 when the state could not be queried.
func exitCode(result watchdog.CheckResult) int {
	switch {
	case result.Action == watchdog.ActionRestartFailed:
		return exitRestartFailed
	case result.Err != nil:
		return exitQueryError
	default:
		return exitOK
	}
}
