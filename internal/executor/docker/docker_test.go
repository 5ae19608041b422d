package docker_test

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coderun/internal/executor/docker"
	"github.com/sakif/coderun/internal/supervisor"
)

func TestDockerRunner(t *testing.T) {
	// Skip in CI environments or when docker is not available
	if os.Getenv("CI") != "" {
		t.Skip("Skipping docker test in CI environment")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker CLI not found")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := docker.DefaultConfig()
	// Any image with /bin/sh will do for these commands.
	cfg.Image = "alpine:3.20"
	cfg.PoolSize = 1
	cfg.ScratchRoot = t.TempDir()

	runner, err := docker.New(cfg, logger)
	if err != nil {
		t.Skipf("docker daemon unavailable: %v", err)
	}
	defer runner.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t.Run("stdout and exit code", func(t *testing.T) {
		res, err := runner.Run(ctx, supervisor.Command{
			Path:    "/bin/sh",
			Args:    []string{"-c", "echo out; echo err >&2; exit 3"},
			Dir:     cfg.ScratchRoot,
			Timeout: 10 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "out\n", res.Stdout)
		assert.Equal(t, "err\n", res.Stderr)
		assert.Equal(t, 3, res.ExitCode)
		assert.False(t, res.TimedOut)
	})

	t.Run("stdin", func(t *testing.T) {
		in := "from stdin"
		res, err := runner.Run(ctx, supervisor.Command{
			Path:    "/bin/cat",
			Dir:     cfg.ScratchRoot,
			Stdin:   &in,
			Timeout: 10 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, in, res.Stdout)
	})

	t.Run("workspace is shared with the host", func(t *testing.T) {
		require.NoError(t, os.WriteFile(cfg.ScratchRoot+"/hello.txt", []byte("shared"), 0o644))

		res, err := runner.Run(ctx, supervisor.Command{
			Path:    "/bin/cat",
			Args:    []string{"hello.txt"},
			Dir:     cfg.ScratchRoot,
			Timeout: 10 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "shared", res.Stdout)
	})

	t.Run("infinite loop timeout", func(t *testing.T) {
		res, err := runner.Run(ctx, supervisor.Command{
			Path:    "/bin/sh",
			Args:    []string{"-c", "echo started; while true; do :; done"},
			Dir:     cfg.ScratchRoot,
			Timeout: 2 * time.Second,
		})
		require.NoError(t, err)
		assert.True(t, res.TimedOut)
		assert.Equal(t, 137, res.ExitCode)
	})

	t.Run("large stdin to a program that never reads it", func(t *testing.T) {
		in := strings.Repeat("x", 8<<20)
		start := time.Now()
		res, err := runner.Run(ctx, supervisor.Command{
			Path:    "/bin/sh",
			Args:    []string{"-c", "while true; do :; done"},
			Dir:     cfg.ScratchRoot,
			Stdin:   &in,
			Timeout: 2 * time.Second,
		})
		require.NoError(t, err)
		assert.True(t, res.TimedOut)
		assert.Equal(t, 137, res.ExitCode)
		assert.Less(t, time.Since(start), 30*time.Second)
	})

	t.Run("concurrent runs beyond the pool size", func(t *testing.T) {
		const n = 3
		var wg sync.WaitGroup
		results := make([]*supervisor.Result, n)
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = runner.Run(ctx, supervisor.Command{
					Path:    "/bin/sh",
					Args:    []string{"-c", "sleep 2; echo done"},
					Dir:     cfg.ScratchRoot,
					Timeout: 20 * time.Second,
				})
			}()
		}
		wg.Wait()

		for i := range n {
			require.NoError(t, errs[i])
			assert.Equal(t, "done\n", results[i].Stdout)
			assert.False(t, results[i].TimedOut)
		}
	})
}
