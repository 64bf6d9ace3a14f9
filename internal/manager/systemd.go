package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultSystemdTimeout = 10 * time.Second

// SystemdManager implements Manager by shelling out to systemctl.
type SystemdManager struct {
	exec    CommandExecutor
	timeout time.Duration
}

// NewSystemdManager returns a Manager backed by the local systemd instance.
func NewSystemdManager(timeout time.Duration) *SystemdManager {
	if timeout <= 0 {
		timeout = defaultSystemdTimeout
	}
	return &SystemdManager{
		exec:    osExecutor{},
		timeout: timeout,
	}
}

// NewSystemdManagerWithExecutor creates a SystemdManager with a custom executor (for testing).
func NewSystemdManagerWithExecutor(executor CommandExecutor, timeout time.Duration) *SystemdManager {
	m := NewSystemdManager(timeout)
	m.exec = executor
	return m
}

// QueryStatus maps `systemctl is-active` output to a State.
// is-active exits non-zero for any non-active unit while still printing the
// state, so the output is parsed before the exit status is considered.
func (m *SystemdManager) QueryStatus(ctx context.Context, name string) (State, error) {
	if m == nil || m.exec == nil {
		return StateUnknown, &QueryError{Service: name, Err: errors.New("systemd manager is not initialized")}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	stdout, stderr, err := m.exec.Run(ctx, "systemctl", "is-active", name)

	switch strings.TrimSpace(string(stdout)) {
	case "active", "reloading":
		return StateRunning, nil
	case "inactive", "failed":
		return StateStopped, nil
	case "activating", "deactivating":
		return StateUnknown, nil
	}

	if err != nil {
		return StateUnknown, &QueryError{Service: name, Err: execError(err, stderr)}
	}
	return StateUnknown, &QueryError{Service: name, Err: fmt.Errorf("unit state not reported for %q", name)}
}

// Restart issues `systemctl restart` for the named unit.
func (m *SystemdManager) Restart(ctx context.Context, name string) error {
	if m == nil || m.exec == nil {
		return &RestartError{Service: name, Err: errors.New("systemd manager is not initialized")}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if _, stderr, err := m.exec.Run(ctx, "systemctl", "restart", name); err != nil {
		return &RestartError{Service: name, Err: execError(err, stderr)}
	}
	return nil
}

// Close implements Manager. Nothing to release for a command-based manager.
func (m *SystemdManager) Close() error {
	return nil
}

func execError(err error, stderr []byte) error {
	message := strings.TrimSpace(string(stderr))
	if message == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, message)
}
