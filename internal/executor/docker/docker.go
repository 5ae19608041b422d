// Package docker runs supervisor commands inside pre-warmed, network-less
// containers instead of as children of the server process.
//
// The scratch root is bind-mounted at the same path in every container, so
// the executor can write sources and read artifacts exactly as it does with
// the local runner. A container serves one command and is then removed.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/coderun/internal/apperror"
	"github.com/sakif/coderun/internal/supervisor"
)

// timeoutExitCode mirrors what the local runner reports for a SIGKILL.
const timeoutExitCode = 128 + 9

// Runner implements supervisor.Runner using Docker.
type Runner struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ supervisor.Runner = (*Runner)(nil)

// New creates a new Docker Runner, makes sure the image is present and
// starts warming the pool.
func New(cfg Config, logger *slog.Logger) (*Runner, error) {
	if cfg.ScratchRoot == "" {
		return nil, errors.New("docker: scratch root is required")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := ensureImage(ctx, cli, cfg.Image, logger); err != nil {
		_ = cli.Close()
		return nil, err
	}

	r := &Runner{
		cli:    cli,
		config: cfg,
		logger: logger,
	}

	r.pool = NewPool(cli, cfg, logger)
	r.pool.Start()

	return r, nil
}

// ensureImage pulls img unless it is already available locally, which is the
// usual case for a toolchain image built on the host.
func ensureImage(ctx context.Context, cli *client.Client, img string, logger *slog.Logger) error {
	if _, err := cli.ImageInspect(ctx, img); err == nil {
		logger.Info("docker image is present", slog.String("image", img))
		return nil
	}

	logger.Info("pulling docker image", slog.String("image", img))
	reader, err := cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	logger.Info("docker image is ready")
	return nil
}

// Close shuts down the pool and the docker client.
func (r *Runner) Close() error {
	r.pool.Stop()
	return r.cli.Close()
}

// Run executes c inside a pooled container.
func (r *Runner) Run(ctx context.Context, c supervisor.Command) (*supervisor.Result, error) {
	start := time.Now()

	// Get a pre-warmed container ID from the pool
	containerID, err := r.pool.GetContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker: waiting for container: %w", err)
	}

	// The container is single-use. Removing it is also how a timed-out exec
	// gets killed.
	defer r.pool.removeContainer(containerID)

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	defer cancel()

	execResp, err := r.cli.ContainerExecCreate(runCtx, containerID, container.ExecOptions{
		AttachStdin:  c.Stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   c.Dir,
		Cmd:          append([]string{c.Path}, c.Args...),
	})
	if err != nil {
		return nil, apperror.SystemFault("docker exec create "+c.Path, err)
	}

	attachResp, err := r.cli.ContainerExecAttach(runCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, apperror.SystemFault("docker exec attach "+c.Path, err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer

	// The reader starts before any stdin is written: a program that echoes
	// its input would otherwise stall the writer once stdout backs up.
	done := make(chan error, 1)
	go func() {
		// Use stdcopy to demultiplex stdout from stderr
		_, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		done <- err
	}()

	// Stdin is written in the background so a program that never reads it
	// cannot hold the request past its time limit. Closing the connection on
	// timeout unblocks the writer.
	go func() {
		if c.Stdin != nil {
			if _, err := io.Copy(attachResp.Conn, strings.NewReader(*c.Stdin)); err != nil {
				r.logger.Debug("writing exec stdin", slog.String("error", err.Error()))
				return
			}
		}
		if err := attachResp.CloseWrite(); err != nil {
			r.logger.Debug("closing exec stdin", slog.String("error", err.Error()))
		}
	}()

	res := &supervisor.Result{}

	select {
	case <-done:
		inspectResp, err := r.cli.ContainerExecInspect(context.Background(), execResp.ID)
		if err != nil {
			return nil, apperror.SystemFault("docker exec inspect", err)
		}
		res.ExitCode = inspectResp.ExitCode
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("docker: %s: %w", c.Path, ctx.Err())
		}
		// Close the stream so the copier returns before we read the buffers.
		attachResp.Close()
		<-done
		res.ExitCode = timeoutExitCode
		res.TimedOut = true
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Duration = time.Since(start)

	r.logger.Debug("docker exec finished",
		slog.String("container", shortID(containerID)),
		slog.String("path", c.Path),
		slog.Int("exitCode", res.ExitCode),
		slog.Bool("timedOut", res.TimedOut),
	)

	return res, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
