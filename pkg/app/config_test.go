package app

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/kiosk404/screenpilot/pkg/logger"
)

func TestApplyLogLevel(t *testing.T) {
	defer func() {
		viper.Set("log.level", "")
		logger.SetLevel("info")
	}()

	viper.Set("log.level", "debug")
	applyLogLevel()
	assert.Equal(t, "debug", logger.Level())

	// An unset key leaves the current level untouched.
	viper.Set("log.level", "")
	applyLogLevel()
	assert.Equal(t, "debug", logger.Level())

	viper.Set("log.level", "warning")
	applyLogLevel()
	assert.Equal(t, "warning", logger.Level())
}
