package app

import (
	"github.com/kiosk404/screenpilot/pkg/utils/cliflag"
)

// CliOptions abstracts configuration options for reading parameters
// from the command line.
type CliOptions interface {
	Flags() cliflag.NamedFlagSets
	Validate() error
	Complete() error
}

// RunFunc defines the application's startup callback function.
type RunFunc func(basename string) error

// Option defines optional parameters for initializing the application
// structure.
type Option func(*App)

// WithOptions opens the application's function to read from the
// command line or read parameters from the configuration file.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithDescription is used to set the description of the application.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithRunFunc is used to set the application startup callback function option.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithDefaultValidArgs set default validation function to valid
// non-flag arguments: any non-flag argument is rejected.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.rejectArgs = true
	}
}

// WithSilence sets the application to silent mode: startup banner and
// config details are not printed.
func WithSilence() Option {
	return func(a *App) {
		a.silence = true
	}
}

// WithNoConfig disables the config-file flag.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}
