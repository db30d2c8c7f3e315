package config

import (
	"runtime"

	coretypes "github.com/projecteru2/core/types"
)

// Config holds cocoond daemon configuration.
//
// The global settings file is not configured here: its location is fixed by
// the platform (see platform.Platform.DaemonConfigHome).
type Config struct {
	// RootDir is the base directory for persistent data (instance indexes).
	RootDir string `json:"root_dir" mapstructure:"root_dir"`
	// RunDir holds runtime files such as VM PID files.
	RunDir string `json:"run_dir" mapstructure:"run_dir"`
	// PoolSize bounds concurrent background work.
	// Defaults to runtime.NumCPU() if zero.
	PoolSize int `json:"pool_size" mapstructure:"pool_size"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:  "/var/lib/cocoond",
		RunDir:   "/var/run/cocoond",
		PoolSize: runtime.NumCPU(),
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}
