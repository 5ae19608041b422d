// Package logging builds the *slog.Logger every other package receives.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and destination.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	// File, when set, receives the log in addition to stderr and is rotated
	// by size.
	File string
}

// DefaultOptions logs at info level in text format to stderr only.
func DefaultOptions() Options {
	return Options{Level: "info", Format: "text"}
}

// Validate reports unknown levels and formats.
func (o Options) Validate() error {
	if _, err := parseLevel(o.Level); err != nil {
		return err
	}
	switch strings.ToLower(o.Format) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT: want text or json, got %q", o.Format)
	}
}

// New returns a logger for o and a close func for the log file, if any.
func New(o Options) (*slog.Logger, func() error, error) {
	return newLogger(o, os.Stderr)
}

func newLogger(o Options, console io.Writer) (*slog.Logger, func() error, error) {
	level, err := parseLevel(o.Level)
	if err != nil {
		return nil, nil, err
	}

	out := console
	closer := func() error { return nil }
	if o.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		out = io.MultiWriter(console, rotator)
		closer = rotator.Close
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(o.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("LOG_FORMAT: want text or json, got %q", o.Format)
	}

	return slog.New(handler), closer, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL: unknown level %q", s)
	}
}
