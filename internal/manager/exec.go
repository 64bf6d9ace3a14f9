package manager

import (
	"context"
	"os/exec"
)

// CommandExecutor abstracts external command invocation for testability.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// osExecutor is the real CommandExecutor backed by os/exec.
type osExecutor struct{}

func (osExecutor) Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err = cmd.Output()
	if exitErr, ok := err.(*exec.ExitError); ok {
		stderr = exitErr.Stderr
	}
	return stdout, stderr, err
}
