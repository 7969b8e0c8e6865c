package app

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kiosk404/screenpilot/pkg/logger"
)

const configFlagName = "config"

var cfgFile string

// addConfigFlag adds flags for a specific server to the specified
// FlagSet object. Values are read from the config file, environment
// variables prefixed with the basename, then command line flags.
func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile, "Read configuration from specified `FILE`, support JSON, TOML, YAML, HCL, or Java properties formats.")

	viper.AutomaticEnv()
	viper.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(basename), "-", "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath(".")
			viper.AddConfigPath("conf")
			viper.SetConfigName(basename)
		}

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				fmt.Printf("Error: failed to read configuration file(%s): %v\n", cfgFile, err)
			}
			return
		}

		applyLogLevel()

		viper.WatchConfig()
		viper.OnConfigChange(func(e fsnotify.Event) {
			fmt.Printf("Config file changed: %s\n", e.Name)
			applyLogLevel()
		})
	})
}

// applyLogLevel pushes the configured log level to the logger. Called
// at startup and again whenever the config file changes on disk.
func applyLogLevel() {
	if level := viper.GetString("log.level"); level != "" {
		logger.SetLevel(level)
	}
}

func bindConfig(fs *pflag.FlagSet) error {
	if err := viper.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags to viper: %w", err)
	}
	return nil
}

func unmarshalConfig(opts interface{}) error {
	if err := viper.Unmarshal(opts); err != nil {
		return fmt.Errorf("unmarshal configuration: %w", err)
	}
	return nil
}
