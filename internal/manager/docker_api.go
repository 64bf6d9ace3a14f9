package manager

import (
	"context"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
)

// dockerAPI defines the subset of Docker client operations used by DockerManager.
// This interface enables unit testing without a real Docker daemon by allowing
// mock implementations to be injected.
type dockerAPI interface {
	// Ping checks connectivity to the Docker daemon.
	Ping(ctx context.Context) (dockertypes.Ping, error)

	// ContainerInspect returns detailed information about a container.
	ContainerInspect(ctx context.Context, containerID string) (dockertypes.ContainerJSON, error)

	// ContainerRestart stops and starts a container.
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error

	// Close releases resources associated with the client.
	Close() error
}

// Ensure the adapter satisfies our interface at compile time.
var _ dockerAPI = (*dockerClientAdapter)(nil)

// dockerClientAdapter wraps the official Docker client to satisfy the dockerAPI interface.
type dockerClientAdapter struct {
	client dockerClientInterface
}

// dockerClientInterface captures the methods we use from *client.Client.
type dockerClientInterface interface {
	Ping(ctx context.Context) (dockertypes.Ping, error)
	ContainerInspect(ctx context.Context, containerID string) (dockertypes.ContainerJSON, error)
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	Close() error
}

func (a *dockerClientAdapter) Ping(ctx context.Context) (dockertypes.Ping, error) {
	return a.client.Ping(ctx)
}

func (a *dockerClientAdapter) ContainerInspect(ctx context.Context, containerID string) (dockertypes.ContainerJSON, error) {
	return a.client.ContainerInspect(ctx, containerID)
}

func (a *dockerClientAdapter) ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error {
	return a.client.ContainerRestart(ctx, containerID, options)
}

func (a *dockerClientAdapter) Close() error {
	return a.client.Close()
}
