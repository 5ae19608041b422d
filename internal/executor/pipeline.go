package executor

import (
	"context"
	"log/slog"

	"github.com/sakif/coderun/internal/apperror"
	"github.com/sakif/coderun/internal/language"
	"github.com/sakif/coderun/internal/metrics"
	"github.com/sakif/coderun/internal/supervisor"
	"github.com/sakif/coderun/internal/workspace"
)

// job is the state one execution carries through its stages.
type job struct {
	req     ExecutionRequest
	profile language.Profile
	ws      *workspace.Workspace
	logger  *slog.Logger
}

type outcomeKind int

const (
	proceed outcomeKind = iota
	halt
	fault
)

// outcome is what a stage hands back to the driver loop.
type outcome struct {
	kind   outcomeKind
	result *ExecutionResult
	err    error
}

type stage struct {
	name string
	fn   func(ctx context.Context, j *job) outcome
}

// stagesFor returns writeSource → compile? → run.
func (e *Engine) stagesFor(p language.Profile) []stage {
	stages := []stage{{name: "write-source", fn: e.writeSource}}
	if p.Kind.Compiled() {
		stages = append(stages, stage{name: StageCompile, fn: e.compile})
	}
	return append(stages, stage{name: StageRun, fn: e.run})
}

func (e *Engine) writeSource(_ context.Context, j *job) outcome {
	if err := e.workspaces.WriteSource(j.ws, j.req.Code, j.profile); err != nil {
		return outcome{kind: fault, err: apperror.SystemFault("write source", err)}
	}
	return outcome{kind: proceed}
}

func (e *Engine) compile(ctx context.Context, j *job) outcome {
	cmd := supervisor.Command{
		Path:    j.profile.Compiler,
		Args:    []string{j.ws.SourcePath},
		Dir:     j.ws.Dir,
		Timeout: e.config.CompileTimeout,
	}
	if j.profile.Kind == language.CompileAndRun {
		cmd.Args = append(cmd.Args, "-o", j.ws.ArtifactPath)
	}

	res, err := e.runner.Run(ctx, cmd)
	if err != nil {
		return outcome{kind: fault, err: err}
	}
	e.metrics.Phase(j.profile.ID, metrics.PhaseCompile, res.Duration)

	if res.ExitCode != 0 || res.TimedOut {
		j.logger.Debug("compilation failed", slog.Int("exitCode", res.ExitCode))
		return outcome{kind: halt, result: &ExecutionResult{
			Stdout:   "",
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
			TimedOut: res.TimedOut,
			Stage:    StageCompile,
		}}
	}
	return outcome{kind: proceed}
}

func (e *Engine) run(ctx context.Context, j *job) outcome {
	cmd := supervisor.Command{
		Dir:     j.ws.Dir,
		Timeout: e.config.RunTimeout,
	}
	switch j.profile.Kind {
	case language.Interpreted:
		cmd.Path = j.profile.Compiler
		cmd.Args = []string{j.ws.SourcePath}
	case language.CompileAndRun:
		cmd.Path = j.ws.ArtifactPath
	case language.CompileWithClassBinding:
		cmd.Path = j.profile.Runtime
		cmd.Args = []string{"-cp", j.ws.Dir, j.ws.ClassName}
	}
	if j.req.Stdin != "" {
		stdin := j.req.Stdin
		cmd.Stdin = &stdin
	}

	res, err := e.runner.Run(ctx, cmd)
	if err != nil {
		return outcome{kind: fault, err: err}
	}
	e.metrics.Phase(j.profile.ID, metrics.PhaseRun, res.Duration)

	return outcome{kind: halt, result: &ExecutionResult{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
		Stage:    StageRun,
	}}
}
