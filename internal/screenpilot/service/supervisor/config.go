package supervisor

import (
	"fmt"
	"os"
	"time"
)

const defaultStartTimeout = 15 * time.Second

// Config holds the tool-server supervision settings.
type Config struct {
	// CoreDir holds the bundled, immutable server scripts.
	CoreDir string

	// WorkDir holds LLM-generated server scripts. Searched before
	// CoreDir when resolving a name.
	WorkDir string

	// Command is the bootstrap interpreter launching server scripts
	// (e.g. "python3").
	Command string

	// RunnerArgs are prepended to the script path, typically the fixed
	// bootstrap entry point that loads the script and serves it over
	// stdio (e.g. ["tools/runner.py"]).
	RunnerArgs []string

	// Env is the subprocess environment, "KEY=VALUE" entries appended
	// to the parent environment.
	Env []string

	// StartTimeout bounds how long Start waits for the subprocess
	// handshake. Default 15s.
	StartTimeout time.Duration
}

// CompletedConfig is the validated supervisor configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults, creating the script
// directories when missing.
func (c *Config) Complete() (CompletedConfig, error) {
	if c.Command == "" {
		return CompletedConfig{}, fmt.Errorf("supervisor: bootstrap command is required")
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = defaultStartTimeout
	}

	for _, dir := range []string{c.CoreDir, c.WorkDir} {
		if dir == "" {
			return CompletedConfig{}, fmt.Errorf("supervisor: core and workspace directories are required")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return CompletedConfig{}, fmt.Errorf("supervisor: create directory %q: %w", dir, err)
		}
	}

	return CompletedConfig{c}, nil
}

// New creates a Supervisor from the completed configuration.
func (c CompletedConfig) New() Supervisor {
	return newManager(c.Config)
}
