// Package executor is the public entry point of the engine: it takes source
// code, a language and optional stdin, and returns what the program printed
// and how it exited.
package executor

import (
	"context"
	"encoding/json"
	"time"
)

// Stages a result can come from.
const (
	StageCompile = "compile"
	StageRun     = "run"
)

// ExecutionRequest represents a request to compile (if needed) and run code.
type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	// Stdin is fed to the program; empty means no input.
	Stdin string `json:"stdin,omitempty"`
}

// ExecutionResult represents the output and status of the code execution.
//
// A compile failure is a result too: Stage is "compile", Stdout is empty and
// Stderr carries the compiler's diagnostics.
type ExecutionResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	// TimedOut distinguishes a kill at the time limit from a program that
	// happened to exit with the same code.
	TimedOut bool          `json:"timedOut"`
	Stage    string        `json:"stage"`
	// Duration is wall time for the whole request. On the wire it is
	// durationMs, in whole milliseconds.
	Duration time.Duration `json:"-"`
}

// MarshalJSON encodes Duration as durationMs.
func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	type plain ExecutionResult
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"durationMs"`
	}{plain(r), r.Duration.Milliseconds()})
}

// Executor represents the core interface for running untrusted code.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
