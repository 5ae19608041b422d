//go:build !windows

package supervisor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coderun/internal/apperror"
	"github.com/sakif/coderun/internal/supervisor"
)

func newRunner() *supervisor.Local {
	return supervisor.NewLocal(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sh(script string) supervisor.Command {
	return supervisor.Command{Path: "/bin/sh", Args: []string{"-c", script}}
}

func strPtr(s string) *string { return &s }

func TestRun_CapturesStdout(t *testing.T) {
	res, err := newRunner().Run(context.Background(), sh(`echo hello`))
	require.NoError(t, err)

	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRun_StderrAndExitCodePassThrough(t *testing.T) {
	res, err := newRunner().Run(context.Background(), sh(`echo oops >&2; exit 3`))
	require.NoError(t, err)

	assert.Empty(t, res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestRun_StdinIsWrittenAndClosed(t *testing.T) {
	cmd := sh(`cat`)
	cmd.Stdin = strPtr("world\n")

	res, err := newRunner().Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "world\n", res.Stdout)
}

func TestRun_NoStdinClosesImmediately(t *testing.T) {
	// cat would block forever on an open stdin.
	cmd := sh(`cat; echo done`)
	cmd.Timeout = 5 * time.Second

	res, err := newRunner().Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "done\n", res.Stdout)
	assert.False(t, res.TimedOut)
}

func TestRun_TimeoutKillsProcessGroup(t *testing.T) {
	// The shell forks sleep; both must die for Run to return promptly.
	cmd := sh(`echo started; sleep 30; echo never`)
	cmd.Timeout = 300 * time.Millisecond

	start := time.Now()
	res, err := newRunner().Run(context.Background(), cmd)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 128+9, res.ExitCode, "SIGKILL")
	assert.Equal(t, "started\n", res.Stdout)
}

func TestRun_NaturalNonZeroIsNotTimeout(t *testing.T) {
	cmd := sh(`exit 137`)
	cmd.Timeout = 5 * time.Second

	res, err := newRunner().Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 137, res.ExitCode)
	assert.False(t, res.TimedOut, "same exit code as a kill, but not a timeout")
}

func TestRun_SpawnFailureIsSystemFault(t *testing.T) {
	_, err := newRunner().Run(context.Background(), supervisor.Command{Path: "/nonexistent/toolchain"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrSystemFault))
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	cmd := sh(`pwd -P`)
	cmd.Dir = dir

	res, err := newRunner().Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, dir[len(dir)-8:])
}

func TestRun_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := newRunner().Run(ctx, sh(`sleep 30`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, apperror.ErrSystemFault))
}
