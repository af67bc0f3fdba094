package cc

import (
	"context"

	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"
)

// Config holds the ambient configuration the library needs outside the
// collection algorithm itself: today, just logging. There is no wire
// format, on-disk format, or CLI for this package (spec §6) — Config
// exists purely so a host binary can route collector log lines the same
// way it routes its own.
type Config struct {
	// Log configures the structured logger that collector cycle summaries
	// and finalizer-panic reports are emitted through.
	Log coretypes.ServerLogConfig `json:"log"`
}

// DefaultConfig returns a Config with sensible defaults, mirroring the
// level/rotation defaults a host application would otherwise have to
// duplicate.
func DefaultConfig() *Config {
	return &Config{
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// Init wires cfg's logging into the process-wide logger. Calling it is
// optional — with no call, collector logging falls back
// to whatever the host has already configured for github.com/projecteru2/core/log.
func Init(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return log.SetupLog(ctx, cfg.Log, "")
}
