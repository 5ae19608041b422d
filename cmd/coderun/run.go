package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sakif/coderun/internal/apperror"
	"github.com/sakif/coderun/internal/config"
	"github.com/sakif/coderun/internal/executor"
	"github.com/sakif/coderun/internal/language"
	"github.com/sakif/coderun/internal/logging"
	"github.com/sakif/coderun/internal/supervisor"
	"github.com/sakif/coderun/internal/workspace"
)

// Exit codes for failures that are not the program's own.
const (
	exitUsage = 2
	exitFault = 1
)

type runOptions struct {
	lang           string
	code           string
	stdin          string
	stdinFile      string
	timeout        time.Duration
	compileTimeout time.Duration
	scratchDir     string
	toolchains     string
	quiet          bool
	verbose        bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Compile (if needed) and run code",
		Long: `Compile (if needed) and run code, printing its stdout and stderr.

Code can be provided via:
  - File argument: coderun run hello.c
  - Inline flag:   coderun run --lang python -c 'print(1+1)'
  - Stdin:         echo 'print(1+1)' | coderun run --lang python

The language is inferred from the file extension unless --lang is given.
coderun exits with the program's exit code, or the compiler's when
compilation fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	defaults := executor.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&opts.lang, "lang", "l", "", "Language: python, javascript, c, cpp, java")
	f.StringVarP(&opts.code, "code", "c", "", "Code to execute")
	f.StringVar(&opts.stdin, "stdin", "", "Text fed to the program's standard input")
	f.StringVar(&opts.stdinFile, "stdin-file", "", "File fed to the program's standard input")
	f.DurationVar(&opts.timeout, "timeout", defaults.RunTimeout, "Run phase time limit")
	f.DurationVar(&opts.compileTimeout, "compile-timeout", defaults.CompileTimeout, "Compile phase time limit (0 for none)")
	f.StringVar(&opts.scratchDir, "scratch-dir", config.DefaultScratchDir(), "Directory for per-run workspaces")
	f.StringVar(&opts.toolchains, "toolchains", "", "YAML file overriding toolchain paths")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the status line")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline stages to stderr")
	cmd.MarkFlagsMutuallyExclusive("stdin", "stdin-file")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts runOptions) error {
	table, err := loadTable(opts.toolchains)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	source, filename, err := readSource(cmd, args, opts.code)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	lang := opts.lang
	if lang == "" && filename != "" {
		if p, ok := table.ByExtension(filepath.Ext(filename)); ok {
			lang = p.ID
		}
	}
	if lang == "" {
		return &exitError{code: exitUsage, err: errors.New("language required: use --lang or a known file extension")}
	}

	stdin := opts.stdin
	if opts.stdinFile != "" {
		data, err := os.ReadFile(opts.stdinFile)
		if err != nil {
			return &exitError{code: exitUsage, err: err}
		}
		stdin = string(data)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{Level: level, Format: "text"})
	if err != nil {
		return err
	}
	defer closeLog()

	engine := executor.NewEngine(
		executor.Config{RunTimeout: opts.timeout, CompileTimeout: opts.compileTimeout},
		table,
		workspace.NewManager(opts.scratchDir, logger),
		supervisor.NewLocal(logger),
		nil,
		logger,
	)

	res, err := engine.Execute(cmd.Context(), executor.ExecutionRequest{
		Code:     source,
		Language: lang,
		Stdin:    stdin,
	})
	if err != nil {
		if errors.Is(err, apperror.ErrUnsupportedLanguage) {
			return &exitError{code: exitUsage, err: err}
		}
		logger.Debug("execution failed", slog.String("error", err.Error()))
		return &exitError{code: exitFault, err: err}
	}

	fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
	if !opts.quiet {
		printStatus(cmd.ErrOrStderr(), res, opts.timeout)
	}

	if res.ExitCode != 0 {
		return &exitError{code: res.ExitCode}
	}
	return nil
}

func loadTable(path string) (*language.Table, error) {
	if path == "" {
		return language.NewTable(language.DefaultToolchains()), nil
	}
	tc, err := config.LoadToolchains(path)
	if err != nil {
		return nil, err
	}
	return language.NewTable(tc), nil
}

// readSource takes code from --code, a file argument, or piped stdin, in
// that order. filename is empty unless the code came from a file.
func readSource(cmd *cobra.Command, args []string, code string) (source, filename string, err error) {
	switch {
	case code != "":
		return code, "", nil
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		return string(data), args[0], nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		// A terminal means nothing was piped in.
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return "", "", errors.New("no code given: pass a file, --code, or pipe code on stdin")
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", "", err
	}
	if len(data) == 0 {
		return "", "", errors.New("no code given: pass a file, --code, or pipe code on stdin")
	}
	return string(data), "", nil
}

func printStatus(w io.Writer, res *executor.ExecutionResult, limit time.Duration) {
	elapsed := res.Duration.Round(time.Millisecond)
	switch {
	case res.TimedOut:
		color.New(color.FgYellow).Fprintf(w, "[%s] timed out after %s (exit %d)\n", res.Stage, limit, res.ExitCode)
	case res.ExitCode != 0:
		color.New(color.FgRed).Fprintf(w, "[%s] exit %d in %s\n", res.Stage, res.ExitCode, elapsed)
	default:
		color.New(color.FgGreen).Fprintf(w, "[%s] exit 0 in %s\n", res.Stage, elapsed)
	}
}
