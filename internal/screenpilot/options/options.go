package options

import (
	"github.com/kiosk404/screenpilot/pkg/utils/cliflag"
	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

// Options holds all configurable parameters of the screenpilot daemon.
type Options struct {
	ProviderOptions   *ProviderOptions   `json:"provider"   mapstructure:"provider"`
	SupervisorOptions *SupervisorOptions `json:"supervisor" mapstructure:"supervisor"`
	AgentOptions      *AgentOptions      `json:"agent"      mapstructure:"agent"`
	DisplayOptions    *DisplayOptions    `json:"display"    mapstructure:"display"`
}

func NewOptions() *Options {
	return &Options{
		ProviderOptions:   NewProviderOptions(),
		SupervisorOptions: NewSupervisorOptions(),
		AgentOptions:      NewAgentOptions(),
		DisplayOptions:    NewDisplayOptions(),
	}
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.ProviderOptions.AddFlags(fss.FlagSet("provider"))
	o.SupervisorOptions.AddFlags(fss.FlagSet("supervisor"))
	o.AgentOptions.AddFlags(fss.FlagSet("agent"))
	o.DisplayOptions.AddFlags(fss.FlagSet("display"))
	return fss
}

func (o *Options) Validate() error {
	if err := o.ProviderOptions.Validate(); err != nil {
		return err
	}
	if err := o.SupervisorOptions.Validate(); err != nil {
		return err
	}
	if err := o.AgentOptions.Validate(); err != nil {
		return err
	}
	return o.DisplayOptions.Validate()
}

// Complete sets default Options.
func (o *Options) Complete() error {
	return nil
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)

	return string(data)
}
