package cmdline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrokit/macrokit/pkg/bridge"
)

func TestExecute_CapturesOutput(t *testing.T) {
	e := New(t.TempDir(), nil)

	result, err := e.Execute(context.Background(), bridge.CmdlineRequest{
		Command: "echo hello",
		Wait:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
}

func TestExecute_ReportsExitCode(t *testing.T) {
	e := New(t.TempDir(), nil)

	result, err := e.Execute(context.Background(), bridge.CmdlineRequest{
		Command: "echo oops >&2; exit 3",
		Wait:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestExecute_Timeout(t *testing.T) {
	e := New(t.TempDir(), nil)

	start := time.Now()
	_, err := e.Execute(context.Background(), bridge.CmdlineRequest{
		Command: "sleep 10",
		Timeout: 100 * time.Millisecond,
		Wait:    true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecute_DetachedReturnsImmediately(t *testing.T) {
	e := New(t.TempDir(), nil)

	start := time.Now()
	result, err := e.Execute(context.Background(), bridge.CmdlineRequest{
		Command: "sleep 2",
		Wait:    false,
	})
	require.NoError(t, err)
	assert.Zero(t, result.ExitCode)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute_EmptyCommand(t *testing.T) {
	e := New(t.TempDir(), nil)
	_, err := e.Execute(context.Background(), bridge.CmdlineRequest{Wait: true})
	assert.Error(t, err)
}

func TestExecute_RunsInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, nil)

	result, err := e.Execute(context.Background(), bridge.CmdlineRequest{
		Command: "pwd",
		Wait:    true,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, dir)
}
