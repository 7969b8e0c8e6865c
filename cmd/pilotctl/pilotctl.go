package main

import (
	"math/rand"
	"os"
	"time"

	"github.com/kiosk404/screenpilot/internal/pilotctl"
)

func main() {
	rand.New(rand.NewSource(time.Now().UnixNano()))

	command := pilotctl.NewDefaultPilotCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
