package docker

import (
	"fmt"
	"os"
)

// Config holds the configuration for Docker execution.
type Config struct {
	// Image must provide every toolchain at the same absolute paths the
	// language table points at.
	Image string
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
	// User runs the container processes. It defaults to the uid:gid of this
	// process so files written into the scratch root stay removable.
	User string
	// ScratchRoot is bind-mounted into every container at the same path, so
	// workspace paths mean the same thing on both sides.
	ScratchRoot string
}

// DefaultConfig provides defaults sized for javac, the hungriest toolchain.
func DefaultConfig() Config {
	return Config{
		Image: "coderun/toolchains:latest",
		// 512 MB memory limit
		MemoryLimit: 512 * 1024 * 1024,
		CPULimit:    1,
		PoolSize:    3,
		User:        fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	}
}
