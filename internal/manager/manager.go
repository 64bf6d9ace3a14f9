package manager

import (
	"context"
	"fmt"
)

// State is the run state of a service as reported by its service manager.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateUnknown State = "unknown"
)

// Manager provides query and restart control over a managed service.
// Implementations wrap an OS-level or container-level service manager.
type Manager interface {
	// QueryStatus returns the current run state of the named service.
	QueryStatus(ctx context.Context, name string) (State, error)

	// Restart asks the service manager to restart the named service.
	Restart(ctx context.Context, name string) error

	// Close releases resources associated with the manager.
	Close() error
}

// QueryError indicates the service manager could not report a state,
// either because it is unreachable or because the service is unknown.
type QueryError struct {
	Service string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Service, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// RestartError indicates the service manager rejected or failed a restart command.
type RestartError struct {
	Service string
	Err     error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("restart %s: %v", e.Service, e.Err)
}

func (e *RestartError) Unwrap() error {
	return e.Err
}
