package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/coderun/internal/apperror"
	"github.com/sakif/coderun/internal/language"
	"github.com/sakif/coderun/internal/metrics"
	"github.com/sakif/coderun/internal/supervisor"
	"github.com/sakif/coderun/internal/workspace"
)

// Config holds the engine's time limits.
type Config struct {
	// RunTimeout bounds the run phase of every language.
	RunTimeout time.Duration
	// CompileTimeout bounds the compile phase. Zero leaves it unbounded.
	CompileTimeout time.Duration
}

// DefaultConfig returns a 5 second run limit and a 30 second compile limit.
func DefaultConfig() Config {
	return Config{
		RunTimeout:     5 * time.Second,
		CompileTimeout: 30 * time.Second,
	}
}

// Engine implements Executor on top of a language table, a workspace
// manager and a process runner.
type Engine struct {
	config     Config
	languages  *language.Table
	workspaces *workspace.Manager
	runner     supervisor.Runner
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

var _ Executor = (*Engine)(nil)

// NewEngine wires an Engine. m may be nil.
func NewEngine(
	cfg Config,
	languages *language.Table,
	workspaces *workspace.Manager,
	runner supervisor.Runner,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		config:     cfg,
		languages:  languages,
		workspaces: workspaces,
		runner:     runner,
		metrics:    m,
		logger:     logger,
	}
}

// Languages returns the supported language profiles.
func (e *Engine) Languages() []language.Profile {
	return e.languages.List()
}

// Execute validates the language, then runs the profile's pipeline in a fresh
// workspace that is removed before Execute returns.
func (e *Engine) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	start := time.Now()

	// Resolve strictly before anything touches the filesystem.
	profile, err := e.languages.Resolve(req.Language)
	if err != nil {
		e.metrics.Execution("unknown", metrics.OutcomeUnsupported)
		return nil, err
	}

	done := e.metrics.Begin()
	defer done()

	logger := e.logger.With(slog.String("language", profile.ID))

	res, err := e.drive(ctx, &job{req: req, profile: profile, logger: logger})
	elapsed := time.Since(start)
	e.metrics.Phase(profile.ID, metrics.PhaseTotal, elapsed)

	if err != nil {
		e.metrics.Execution(profile.ID, faultOutcome(err))
		logger.Warn("execution failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed),
		)
		return nil, err
	}

	res.Duration = elapsed
	e.metrics.Execution(profile.ID, resultOutcome(res))
	logger.Info("execution finished",
		slog.String("stage", res.Stage),
		slog.Int("exitCode", res.ExitCode),
		slog.Bool("timedOut", res.TimedOut),
		slog.Duration("duration", elapsed),
	)
	return res, nil
}

// drive allocates the workspace, attaches its cleanup, and evaluates the
// profile's stages in order until one halts or faults.
func (e *Engine) drive(ctx context.Context, j *job) (*ExecutionResult, error) {
	ws, err := e.workspaces.Create()
	if err != nil {
		return nil, apperror.SystemFault("create workspace", err)
	}
	// Cleanup failures are logged by the manager and never fail the request.
	defer func() { _ = e.workspaces.Cleanup(ws) }()
	j.ws = ws

	j.logger = j.logger.With(slog.String("workspace", ws.Token))

	for _, st := range e.stagesFor(j.profile) {
		j.logger.Debug("entering stage", slog.String("stage", st.name))
		out := st.fn(ctx, j)
		switch out.kind {
		case proceed:
			continue
		case halt:
			return out.result, nil
		case fault:
			return nil, out.err
		}
	}
	return nil, fmt.Errorf("executor: %s pipeline produced no result", j.profile.ID)
}

func resultOutcome(res *ExecutionResult) string {
	switch {
	case res.TimedOut:
		return metrics.OutcomeTimeout
	case res.Stage == StageCompile:
		return metrics.OutcomeCompileError
	case res.ExitCode != 0:
		return metrics.OutcomeRuntimeError
	default:
		return metrics.OutcomeOK
	}
}

func faultOutcome(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeSystemFault
}
