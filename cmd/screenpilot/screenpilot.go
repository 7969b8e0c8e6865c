package main

import (
	"math/rand"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/kiosk404/screenpilot/internal/screenpilot"
)

func main() {
	rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

	screenpilot.NewApp("screenpilot").Run()
}
