package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// SupervisorOptions configures the tool-server subprocess supervisor.
type SupervisorOptions struct {
	// CoreDir holds the bundled server scripts.
	CoreDir string `json:"core-dir" mapstructure:"core-dir"`

	// WorkDir holds agent-created server scripts.
	WorkDir string `json:"work-dir" mapstructure:"work-dir"`

	// Command is the interpreter used to run server scripts.
	Command string `json:"command" mapstructure:"command"`

	// RunnerScript is the bootstrap entry point handed the script path.
	RunnerScript string `json:"runner-script" mapstructure:"runner-script"`

	// StartTimeout bounds the subprocess handshake.
	StartTimeout time.Duration `json:"start-timeout" mapstructure:"start-timeout"`

	// MaxIdle is the idle-sweep threshold for running servers.
	MaxIdle time.Duration `json:"max-idle" mapstructure:"max-idle"`
}

func NewSupervisorOptions() *SupervisorOptions {
	return &SupervisorOptions{
		CoreDir:      "servers",
		WorkDir:      "workspace",
		Command:      "python3",
		RunnerScript: "tools/runner.py",
		StartTimeout: 15 * time.Second,
		MaxIdle:      600 * time.Second,
	}
}

func (o *SupervisorOptions) Validate() error {
	if o.Command == "" {
		return fmt.Errorf("supervisor command is required")
	}
	if o.CoreDir == "" || o.WorkDir == "" {
		return fmt.Errorf("supervisor core_dir and work_dir are required")
	}
	return nil
}

func (o *SupervisorOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.CoreDir, "supervisor.core-dir", o.CoreDir, "Directory of bundled tool-server scripts.")
	fs.StringVar(&o.WorkDir, "supervisor.work-dir", o.WorkDir, "Directory of agent-created tool-server scripts.")
	fs.StringVar(&o.Command, "supervisor.command", o.Command, "Interpreter used to launch tool servers.")
	fs.StringVar(&o.RunnerScript, "supervisor.runner-script", o.RunnerScript, "Bootstrap script that serves a tool script over stdio.")
	fs.DurationVar(&o.StartTimeout, "supervisor.start-timeout", o.StartTimeout, "Handshake timeout when starting a tool server.")
	fs.DurationVar(&o.MaxIdle, "supervisor.max-idle", o.MaxIdle, "Idle time after which a tool server is stopped.")
}
