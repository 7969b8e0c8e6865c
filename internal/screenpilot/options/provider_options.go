package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ProviderOptions selects and configures the LLM provider.
type ProviderOptions struct {
	// Provider is the adapter name, "gemini" or "claude".
	Provider string `json:"provider" mapstructure:"provider"`

	// Model is the provider model identifier.
	Model string `json:"model" mapstructure:"model"`

	// APIKey can also be supplied via environment variable
	// (SCREENPILOT_PROVIDER_API_KEY).
	APIKey string `json:"api-key" mapstructure:"api-key"`

	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// MaxHistory bounds each role history (messages kept is a small
	// multiple of this).
	MaxHistory int `json:"max-history" mapstructure:"max-history"`

	// MaxOutputTokens caps the reply size where the provider supports it.
	MaxOutputTokens int `json:"max-output-tokens" mapstructure:"max-output-tokens"`
}

func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "gemini",
		Model:      "gemini-2.0-flash",
		MaxHistory: 5,
	}
}

func (o *ProviderOptions) Validate() error {
	switch o.Provider {
	case "gemini", "claude":
	default:
		return fmt.Errorf("invalid provider %q, must be 'gemini' or 'claude'", o.Provider)
	}
	if o.Model == "" {
		return fmt.Errorf("provider model is required")
	}
	if o.MaxHistory <= 0 {
		return fmt.Errorf("max_history must be positive")
	}
	return nil
}

func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Provider, "provider.name", o.Provider, "LLM provider, 'gemini' or 'claude'.")
	fs.StringVar(&o.Model, "provider.model", o.Model, "Model identifier used for decisions.")
	fs.StringVar(&o.APIKey, "provider.api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.BaseURL, "provider.base-url", o.BaseURL, "Override the provider API endpoint.")
	fs.IntVar(&o.MaxHistory, "provider.max-history", o.MaxHistory, "Bound on each role conversation history.")
	fs.IntVar(&o.MaxOutputTokens, "provider.max-output-tokens", o.MaxOutputTokens, "Cap on reply tokens (0 = provider default).")
}
