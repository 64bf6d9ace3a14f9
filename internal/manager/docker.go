package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultDockerTimeout = 10 * time.Second

	dialInitialInterval = 500 * time.Millisecond
	dialMaxInterval     = 5 * time.Second
	dialMaxElapsed      = 30 * time.Second
)

// DockerManager implements Manager using the official Docker Go SDK.
// A "service" is a container known to the daemon by name or ID.
type DockerManager struct {
	api     dockerAPI
	timeout time.Duration
}

// NewDockerManager initializes a Docker-backed manager for the given API host.
// Construction blocks until the daemon answers a ping, retrying with
// exponential backoff so a watchdog started alongside the daemon does not
// fail before the daemon is up.
func NewDockerManager(ctx context.Context, host string, timeout time.Duration) (*DockerManager, error) {
	if timeout <= 0 {
		timeout = defaultDockerTimeout
	}

	opts := []client.Opt{
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	if isNetworkHost(host) {
		opts = append(opts, client.WithHTTPClient(newRetryingHTTPClient(timeout)))
	}

	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	m := &DockerManager{
		api:     &dockerClientAdapter{client: api},
		timeout: timeout,
	}

	if err := m.waitReachable(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	return m, nil
}

// NewDockerManagerWithAPI creates a DockerManager with a custom API (for testing).
func NewDockerManagerWithAPI(api dockerAPI, timeout time.Duration) *DockerManager {
	if timeout <= 0 {
		timeout = defaultDockerTimeout
	}
	return &DockerManager{api: api, timeout: timeout}
}

// QueryStatus inspects the container and maps its state to a State.
func (m *DockerManager) QueryStatus(ctx context.Context, name string) (State, error) {
	if m == nil || m.api == nil {
		return StateUnknown, &QueryError{Service: name, Err: errors.New("docker manager is not initialized")}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	inspect, err := m.api.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return StateUnknown, &QueryError{Service: name, Err: fmt.Errorf("container %q not found", name)}
		}
		return StateUnknown, &QueryError{Service: name, Err: err}
	}
	if inspect.State == nil {
		return StateUnknown, &QueryError{Service: name, Err: fmt.Errorf("container %q reported no state", name)}
	}

	return mapContainerStatus(inspect.State.Status), nil
}

// Restart issues a container restart through the daemon.
func (m *DockerManager) Restart(ctx context.Context, name string) error {
	if m == nil || m.api == nil {
		return &RestartError{Service: name, Err: errors.New("docker manager is not initialized")}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.api.ContainerRestart(ctx, name, container.StopOptions{}); err != nil {
		return &RestartError{Service: name, Err: err}
	}
	return nil
}

// Close releases the underlying client.
func (m *DockerManager) Close() error {
	if m == nil || m.api == nil {
		return nil
	}
	return m.api.Close()
}

func (m *DockerManager) waitReachable(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = dialInitialInterval
	policy.MaxInterval = dialMaxInterval
	policy.MaxElapsedTime = dialMaxElapsed

	return backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		_, err := m.api.Ping(pingCtx)
		return err
	}, backoff.WithContext(policy, ctx))
}

// mapContainerStatus translates a Docker container status string.
// Restarting containers are in flight, so their state is unknown rather
// than stopped; issuing another restart there would race the daemon.
func mapContainerStatus(status string) State {
	switch status {
	case "running":
		return StateRunning
	case "created", "paused", "exited", "dead", "removing":
		return StateStopped
	case "restarting":
		return StateUnknown
	default:
		return StateUnknown
	}
}

func isNetworkHost(host string) bool {
	return strings.HasPrefix(host, "tcp://") ||
		strings.HasPrefix(host, "http://") ||
		strings.HasPrefix(host, "https://")
}

func newRetryingHTTPClient(timeout time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient = &http.Client{Timeout: timeout}
	return rc.StandardClient()
}
