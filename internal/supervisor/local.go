package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/sakif/coderun/internal/apperror"
)

// waitDelay bounds how long Wait keeps draining stdout/stderr after the
// process is gone, in case a grandchild escaped the process group and still
// holds the pipes.
const waitDelay = 2 * time.Second

// Local runs commands as direct children of this process.
type Local struct {
	logger *slog.Logger
}

// NewLocal returns a Runner backed by os/exec.
func NewLocal(logger *slog.Logger) *Local {
	return &Local{logger: logger}
}

var _ Runner = (*Local)(nil)

// Run starts c and waits for it to exit or for its timeout to expire. On
// timeout the whole process group is killed so shells and compilers do not
// leave orphans behind.
func (l *Local) Run(ctx context.Context, c Command) (*Result, error) {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stdin != nil {
		cmd.Stdin = strings.NewReader(*c.Stdin)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("supervisor: %s: %w", c.Path, ctx.Err())
		}
		return nil, apperror.SystemFault("spawn "+c.Path, err)
	}
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	// The caller went away: this is neither a result nor a system fault.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("supervisor: %s: %w", c.Path, ctx.Err())
	}

	if cmd.ProcessState == nil {
		return nil, apperror.SystemFault("wait "+c.Path, waitErr)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) && runCtx.Err() == nil {
		// Output copying failed while the process itself was fine.
		return nil, apperror.SystemFault("collect output of "+c.Path, waitErr)
	}

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd.ProcessState),
		TimedOut: c.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded),
		Duration: elapsed,
	}

	l.logger.Debug("process exited",
		slog.String("path", c.Path),
		slog.Int("exitCode", res.ExitCode),
		slog.Bool("timedOut", res.TimedOut),
		slog.Duration("duration", res.Duration),
	)

	return res, nil
}
