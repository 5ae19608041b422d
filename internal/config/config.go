// Package config loads runtime settings from the environment.
//
// ENVIRONMENT VARIABLES:
//
//	PORT              HTTP listen port (8080)
//	SCRATCH_DIR       shared scratch root ($TMPDIR/scriptorium)
//	RUN_TIMEOUT       run phase limit, Go duration syntax (5s)
//	COMPILE_TIMEOUT   compile phase limit, 0 for none (30s)
//	TOOLCHAINS_FILE   optional YAML file overriding toolchain paths
//	EXECUTOR_BACKEND  "local" or "docker" (local)
//	DOCKER_IMAGE      toolchain image for the docker backend
//	DOCKER_POOL_SIZE  pre-warmed containers for the docker backend (3)
//	LOG_LEVEL         debug, info, warn or error (info)
//	LOG_FORMAT        text or json (text)
//	LOG_FILE          optional rotating log file
//
// Every value has a default; a value that is set but malformed is an error
// rather than being silently replaced.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/coderun/internal/executor/docker"
	"github.com/sakif/coderun/internal/language"
	"github.com/sakif/coderun/internal/logging"
)

// Executor backends.
const (
	BackendLocal  = "local"
	BackendDocker = "docker"
)

// Config is everything the server needs to start.
type Config struct {
	Port           int
	ScratchDir     string
	RunTimeout     time.Duration
	CompileTimeout time.Duration
	Toolchains     language.Toolchains
	Backend        string
	Docker         docker.Config
	Log            logging.Options
}

// DefaultScratchDir is the scratch root used when SCRATCH_DIR is unset.
func DefaultScratchDir() string {
	return filepath.Join(os.TempDir(), "scriptorium")
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:           8080,
		ScratchDir:     DefaultScratchDir(),
		RunTimeout:     5 * time.Second,
		CompileTimeout: 30 * time.Second,
		Toolchains:     language.DefaultToolchains(),
		Backend:        BackendLocal,
		Docker:         docker.DefaultConfig(),
		Log:            logging.DefaultOptions(),
	}

	var errs []error

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("PORT: invalid value %q", v))
		}
		cfg.Port = port
	}

	if v := getenv("SCRATCH_DIR"); v != "" {
		abs, err := filepath.Abs(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SCRATCH_DIR: %w", err))
		}
		cfg.ScratchDir = abs
	}

	if v := getenv("RUN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("RUN_TIMEOUT: must be a positive duration, got %q", v))
		}
		cfg.RunTimeout = d
	}

	if v := getenv("COMPILE_TIMEOUT"); v != "" {
		d, err := parseDurationOrZero(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("COMPILE_TIMEOUT: must be a duration or 0, got %q", v))
		}
		cfg.CompileTimeout = d
	}

	if v := getenv("TOOLCHAINS_FILE"); v != "" {
		tc, err := LoadToolchains(v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Toolchains = tc
	}

	if v := getenv("EXECUTOR_BACKEND"); v != "" {
		switch b := strings.ToLower(strings.TrimSpace(v)); b {
		case BackendLocal, BackendDocker:
			cfg.Backend = b
		default:
			errs = append(errs, fmt.Errorf("EXECUTOR_BACKEND: want %q or %q, got %q", BackendLocal, BackendDocker, v))
		}
	}

	if v := getenv("DOCKER_IMAGE"); v != "" {
		cfg.Docker.Image = v
	}
	if v := getenv("DOCKER_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("DOCKER_POOL_SIZE: must be a positive integer, got %q", v))
		}
		cfg.Docker.PoolSize = n
	}
	cfg.Docker.ScratchRoot = cfg.ScratchDir

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	cfg.Log.File = getenv("LOG_FILE")
	if err := cfg.Log.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// parseDurationOrZero accepts a bare "0" as well as Go duration syntax.
func parseDurationOrZero(v string) (time.Duration, error) {
	if v == "0" {
		return 0, nil
	}
	return time.ParseDuration(v)
}

// LoadToolchains reads a YAML file of toolchain paths. Keys left out keep
// their defaults:
//
//	python: /opt/python3.12/bin/python3
//	java: /usr/lib/jvm/java-21/bin/java
func LoadToolchains(path string) (language.Toolchains, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return language.Toolchains{}, fmt.Errorf("toolchains: %w", err)
	}

	var tc language.Toolchains
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return language.Toolchains{}, fmt.Errorf("toolchains: parsing %s: %w", path, err)
	}
	return tc.Merge(language.DefaultToolchains()), nil
}
