package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DisplayOptions configures the operator dashboard.
type DisplayOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

func NewDisplayOptions() *DisplayOptions {
	return &DisplayOptions{
		Enabled: true,
		Addr:    "127.0.0.1:8240",
	}
}

func (o *DisplayOptions) Validate() error {
	if o.Enabled && o.Addr == "" {
		return fmt.Errorf("display addr is required when the dashboard is enabled")
	}
	return nil
}

func (o *DisplayOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "display.enabled", o.Enabled, "Serve the operator dashboard.")
	fs.StringVar(&o.Addr, "display.addr", o.Addr, "Dashboard listen address.")
}
