// Package cmdline implements the process-launch bridge on top of the
// local shell.
package cmdline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/logging"
)

// DefaultTimeout bounds a command when the macro gives none.
const DefaultTimeout = 30 * time.Second

// Executor runs commands through "sh -c" with a timeout.
type Executor struct {
	dir string
	log *logging.Logger
}

// New creates a process launcher. dir is the working directory for
// launched commands; empty means the current directory. The logger may
// be nil.
func New(dir string, log *logging.Logger) *Executor {
	return &Executor{dir: dir, log: log}
}

// Execute runs one command. With Wait false the process is started and
// left alone; the zero result is returned immediately.
func (e *Executor) Execute(ctx context.Context, req bridge.CmdlineRequest) (bridge.CmdlineResult, error) {
	if req.Command == "" {
		return bridge.CmdlineResult{}, fmt.Errorf("command cannot be empty")
	}

	if !req.Wait {
		cmd := exec.Command("sh", "-c", req.Command)
		cmd.Dir = e.dir
		if err := cmd.Start(); err != nil {
			return bridge.CmdlineResult{}, fmt.Errorf("failed to start command: %w", err)
		}
		// Reap in the background so the child never zombifies.
		go func() { _ = cmd.Wait() }()
		if e.log != nil {
			e.log.Infof("started detached command: %s", req.Command)
		}
		return bridge.CmdlineResult{}, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", req.Command)
	cmd.Dir = e.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := bridge.CmdlineResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if execCtx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("command timed out after %s", timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run command: %w", err)
	}
	return result, nil
}
