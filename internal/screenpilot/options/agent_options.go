package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// AgentOptions configures the orchestrator loop.
type AgentOptions struct {
	// Goal is the initial mission. When empty and no checkpoint
	// exists, the dashboard asks the operator for one.
	Goal string `json:"goal" mapstructure:"goal"`

	// Resume reloads the previous checkpoint on start.
	Resume bool `json:"resume" mapstructure:"resume"`

	CheckpointFile  string `json:"checkpoint-file" mapstructure:"checkpoint-file"`
	ResponseLogFile string `json:"response-log-file" mapstructure:"response-log-file"`

	// ScreenshotCommand is the capture command line; "{output}" is
	// replaced with a temp file path. Empty picks a platform default.
	ScreenshotCommand string `json:"screenshot-command" mapstructure:"screenshot-command"`

	TurnDelay  time.Duration `json:"turn-delay" mapstructure:"turn-delay"`
	ForgeEvery int           `json:"forge-every" mapstructure:"forge-every"`
}

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		CheckpointFile:  "history/checkpoint.json",
		ResponseLogFile: "history/responses.db",
		TurnDelay:       2 * time.Second,
		ForgeEvery:      5,
	}
}

func (o *AgentOptions) Validate() error {
	if o.CheckpointFile == "" {
		return fmt.Errorf("checkpoint_file is required")
	}
	if o.TurnDelay < 0 {
		return fmt.Errorf("turn_delay must not be negative")
	}
	return nil
}

func (o *AgentOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Goal, "agent.goal", o.Goal, "Initial mission for the agent.")
	fs.BoolVar(&o.Resume, "agent.resume", o.Resume, "Resume from the last checkpoint.")
	fs.StringVar(&o.CheckpointFile, "agent.checkpoint-file", o.CheckpointFile, "Path of the state checkpoint document.")
	fs.StringVar(&o.ResponseLogFile, "agent.response-log-file", o.ResponseLogFile, "Path of the raw provider response log.")
	fs.StringVar(&o.ScreenshotCommand, "agent.screenshot-command", o.ScreenshotCommand, "Screen capture command line ({output} = temp file).")
	fs.DurationVar(&o.TurnDelay, "agent.turn-delay", o.TurnDelay, "Pause between orchestrator turns.")
	fs.IntVar(&o.ForgeEvery, "agent.forge-every", o.ForgeEvery, "Run the tool-creation phase every N turns.")
}
