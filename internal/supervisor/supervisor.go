// Package supervisor runs one child process with a bounded lifetime and turns
// what it observed into a Result, or into an error when the process could not
// be started at all.
package supervisor

import (
	"context"
	"time"
)

// Command is one process to run.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Stdin is written to the process and the stream closed. A nil Stdin
	// closes the stream immediately.
	Stdin *string
	// Timeout bounds the wall-clock lifetime. Zero means unbounded.
	Timeout time.Duration
}

// Result is what a process produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// TimedOut is set when the process was killed for exceeding Timeout.
	// ExitCode then holds what the OS reported for the kill.
	TimedOut bool
	Duration time.Duration
}

// Runner spawns commands. Run returns an error wrapping
// apperror.ErrSystemFault when the process cannot be started, and the
// context's error when the caller gave up; every other outcome, including a
// nonzero exit or a timeout, is a Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}
