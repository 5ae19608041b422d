// Package main is the entry point for the code execution server.
//
// The main package is kept minimal. Its job is to:
//  1. Read configuration (environment variables, see internal/config)
//  2. Create dependencies (logger, runner, executor, metrics)
//  3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/executor, etc.).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/coderun/internal/config"
	"github.com/sakif/coderun/internal/executor"
	"github.com/sakif/coderun/internal/executor/docker"
	"github.com/sakif/coderun/internal/language"
	"github.com/sakif/coderun/internal/logging"
	"github.com/sakif/coderun/internal/metrics"
	"github.com/sakif/coderun/internal/server"
	"github.com/sakif/coderun/internal/supervisor"
	"github.com/sakif/coderun/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coderun-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// === 2. SET UP LOGGING ===
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	// === 3. CHOOSE THE PROCESS RUNNER ===
	// The local runner spawns toolchains as children of this process. The
	// docker runner is opt-in and needs an image carrying the same toolchain
	// paths.
	var runner supervisor.Runner = supervisor.NewLocal(logger)
	if cfg.Backend == config.BackendDocker {
		dockerRunner, err := docker.New(cfg.Docker, logger)
		if err != nil {
			return fmt.Errorf("docker backend: %w", err)
		}
		defer dockerRunner.Close()
		runner = dockerRunner
	}

	// === 4. BUILD THE ENGINE ===
	m := metrics.New()
	engine := executor.NewEngine(
		executor.Config{RunTimeout: cfg.RunTimeout, CompileTimeout: cfg.CompileTimeout},
		language.NewTable(cfg.Toolchains),
		workspace.NewManager(cfg.ScratchDir, logger),
		runner,
		m,
		logger,
	)

	logger.Info("executor ready",
		slog.String("backend", cfg.Backend),
		slog.String("scratchDir", cfg.ScratchDir),
		slog.Duration("runTimeout", cfg.RunTimeout),
		slog.Duration("compileTimeout", cfg.CompileTimeout),
	)

	// === 5. CREATE AND START THE SERVER ===
	srv := server.New(server.Config{
		Port:         cfg.Port,
		WriteTimeout: writeTimeout(cfg),
	}, logger, engine, engine, m)

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return srv.Start()
}

// writeTimeout leaves room for a full compile and run. An unbounded compile
// phase means an unbounded response.
func writeTimeout(cfg config.Config) time.Duration {
	if cfg.CompileTimeout == 0 {
		return 0
	}
	return cfg.CompileTimeout + cfg.RunTimeout + 15*time.Second
}
