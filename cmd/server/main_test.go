package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/coderun/internal/config"
)

func TestWriteTimeout(t *testing.T) {
	tests := []struct {
		name    string
		compile time.Duration
		run     time.Duration
		want    time.Duration
	}{
		{"defaults", 30 * time.Second, 5 * time.Second, 50 * time.Second},
		{"short limits", time.Second, time.Second, 17 * time.Second},
		{"unbounded compile", 0, 5 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := writeTimeout(config.Config{CompileTimeout: tt.compile, RunTimeout: tt.run})
			assert.Equal(t, tt.want, got)
		})
	}
}
