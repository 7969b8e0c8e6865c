package app

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// App is the main structure of a cli application.
// It is recommended that an app be created with the app.NewApp() function.
type App struct {
	name        string
	basename    string
	description string
	options     CliOptions
	runFunc     RunFunc
	silence     bool
	noConfig    bool
	rejectArgs  bool
	cmd         *cobra.Command
}

// NewApp creates a new application instance based on the given
// application name, binary name, and other options.
func NewApp(name string, basename string, opts ...Option) *App {
	a := &App{
		name:     name,
		basename: basename,
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()

	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.basename,
		Short:         a.name,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	if a.rejectArgs {
		cmd.Args = cobra.NoArgs
	}

	if a.options != nil {
		fss := a.options.Flags()
		for _, name := range fss.Order {
			cmd.Flags().AddFlagSet(fss.FlagSets[name])
		}
	}

	if !a.noConfig {
		addConfigFlag(a.basename, cmd.Flags())
	}

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	a.cmd = cmd
}

// Run is used to launch the application.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Printf("%v %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// Command returns cobra command instance inside the application.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	if !a.silence {
		fmt.Printf("%v Starting %s ...\n", color.GreenString("==>"), a.name)
	}

	if !a.noConfig {
		if err := bindConfig(cmd.Flags()); err != nil {
			return err
		}
		if a.options != nil {
			if err := unmarshalConfig(a.options); err != nil {
				return err
			}
		}
	}

	if a.options != nil {
		if err := a.applyOptions(); err != nil {
			return err
		}
	}

	if a.runFunc != nil {
		return a.runFunc(a.basename)
	}

	return nil
}

func (a *App) applyOptions() error {
	if err := a.options.Complete(); err != nil {
		return err
	}
	return a.options.Validate()
}
