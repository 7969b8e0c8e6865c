package screenpilot

import (
	"fmt"

	"github.com/kiosk404/screenpilot/internal/screenpilot/config"
	"github.com/kiosk404/screenpilot/internal/screenpilot/options"
	"github.com/kiosk404/screenpilot/pkg/app"
	"github.com/kiosk404/screenpilot/pkg/logger"
)

const (
	AppName = "screenpilot"
)

func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("screenpilot",
		basename,
		app.WithOptions(opts),
		app.WithDescription(`ScreenPilot is an autonomous screen-operating agent. It watches the
screen, decides through an LLM, and acts through dynamically managed
tool servers it can create, edit and restart while running.`),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		logPath := fmt.Sprintf("logs/%s.log", basename)

		if err := logger.InitLog(logPath); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return Run(cfg)
	}
}
