package pilotctl

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiosk404/screenpilot/internal/pilotctl/cmd"
	"github.com/kiosk404/screenpilot/internal/pilotctl/cmd/info"
	"github.com/kiosk404/screenpilot/internal/pilotctl/cmd/state"
	"github.com/kiosk404/screenpilot/internal/pilotctl/cmd/task"
)

// NewDefaultPilotCtlCommand creates the `pilotctl` command with default arguments.
func NewDefaultPilotCtlCommand() *cobra.Command {
	return NewPilotCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewPilotCtlCommand(in io.Reader, out, err io.Writer) *cobra.Command {
	// Parent command to which all subcommands are added.
	cmds := &cobra.Command{
		Use:   "pilotctl",
		Short: "pilotctl inspects and drives a running screenpilot agent",
		Long: fmt.Sprintf(`%s
pilotctl is the CLI tool for the screenpilot desktop agent.

It talks to the agent's dashboard server to show what the agent is
currently thinking and doing, and to hand it new missions.`, cmd.Banner()),
		Run: runHelp,
	}

	cmd.AddGlobalFlags(cmds.PersistentFlags())

	cmds.AddCommand(state.NewCmdState(out, cmd.GetDashboardAddr))
	cmds.AddCommand(task.NewCmdTask(out, cmd.GetDashboardAddr))
	cmds.AddCommand(info.NewCmdInfo(out))

	return cmds
}

func runHelp(cmd *cobra.Command, args []string) {
	_ = cmd.Help()
}
