package cmd

import (
	"fmt"

	"github.com/fatih/color"
)

const bannerText = `
  ____                           ____  _ _       _
 / ___|  ___ _ __ ___  ___ _ __ |  _ \(_) | ___ | |_
 \___ \ / __| '__/ _ \/ _ \ '_ \| |_) | | |/ _ \| __|
  ___) | (__| | |  __/  __/ | | |  __/| | | (_) | |_
 |____/ \___|_|  \___|\___|_| |_|_|   |_|_|\___/ \__|

       ScreenPilot Autonomous Desktop Agent
`

// Banner returns the CLI banner string.
func Banner() string {
	return fmt.Sprintf("%s\n", color.CyanString(bannerText))
}
