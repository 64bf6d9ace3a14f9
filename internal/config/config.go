package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envService        = "SW_SERVICE"
	envManager        = "SW_MANAGER"
	envDockerHost     = "SW_DOCKER_HOST"
	envPollInterval   = "SW_POLL_INTERVAL"
	envManagerTimeout = "SW_MANAGER_TIMEOUT"
	envRestartRate    = "SW_RESTART_RATE"
	envRestartBurst   = "SW_RESTART_BURST"
	envHealthPort     = "SW_HEALTH_PORT"
	envMetricsPort    = "SW_METRICS_PORT"
	envLogLevel       = "SW_LOG_LEVEL"
)

// Supported service manager backends.
const (
	ManagerSystemd = "systemd"
	ManagerDocker  = "docker"
)

const (
	defaultManagerTimeout = 10 * time.Second
	defaultDockerHost     = "unix:///var/run/docker.sock"
	defaultRestartRate    = time.Minute
	defaultRestartBurst   = 3
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	Service        string
	Manager        string
	DockerHost     string
	PollInterval   time.Duration // zero means one-shot mode
	ManagerTimeout time.Duration
	RestartRate    time.Duration
	RestartBurst   int
	HealthPort     int
	MetricsPort    int
	LogLevel       string
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Manager:        ManagerSystemd,
		DockerHost:     defaultDockerHost,
		ManagerTimeout: defaultManagerTimeout,
		RestartRate:    defaultRestartRate,
		RestartBurst:   defaultRestartBurst,
	}

	if value, ok := lookupTrimmed(envService); ok {
		cfg.Service = value
	}

	if value, ok := lookupTrimmed(envManager); ok {
		cfg.Manager = strings.ToLower(value)
	}

	if value, ok := lookupTrimmed(envDockerHost); ok {
		cfg.DockerHost = value
	}

	if value, ok := lookupTrimmed(envPollInterval); ok {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPollInterval, err)
		}
		if interval < 0 {
			return Config{}, fmt.Errorf("%s must not be negative", envPollInterval)
		}
		cfg.PollInterval = interval
	}

	if value, ok := lookupTrimmed(envManagerTimeout); ok {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envManagerTimeout, err)
		}
		if timeout <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envManagerTimeout)
		}
		cfg.ManagerTimeout = timeout
	}

	if value, ok := lookupTrimmed(envRestartRate); ok {
		rate, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envRestartRate, err)
		}
		if rate <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envRestartRate)
		}
		cfg.RestartRate = rate
	}

	if value, ok := lookupTrimmed(envRestartBurst); ok {
		burst, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envRestartBurst, err)
		}
		if burst <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envRestartBurst)
		}
		cfg.RestartBurst = burst
	}

	var err error
	if cfg.HealthPort, err = parsePort(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = parsePort(envMetricsPort); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envLogLevel); ok {
		cfg.LogLevel = value
	}

	if cfg.Service == "" {
		return Config{}, errors.New("SW_SERVICE is required")
	}

	if cfg.Manager != ManagerSystemd && cfg.Manager != ManagerDocker {
		return Config{}, fmt.Errorf("invalid %s: must be %q or %q", envManager, ManagerSystemd, ManagerDocker)
	}

	if cfg.Manager == ManagerDocker {
		if err := validateDockerHost(cfg.DockerHost); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// OneShot reports whether the watchdog should run a single check and exit.
func (c Config) OneShot() bool {
	return c.PollInterval <= 0
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func parsePort(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid %s: out of range", key)
	}
	return port, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateDockerHost(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", envDockerHost, err)
	}
	switch parsed.Scheme {
	case "unix", "npipe":
		if parsed.Path == "" && parsed.Opaque == "" {
			return fmt.Errorf("invalid %s: must include socket path", envDockerHost)
		}
	case "tcp", "http", "https":
		if parsed.Host == "" {
			return fmt.Errorf("invalid %s: must include host", envDockerHost)
		}
	default:
		return fmt.Errorf("invalid %s: unsupported scheme %q", envDockerHost, parsed.Scheme)
	}
	return nil
}
