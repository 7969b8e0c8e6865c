package screenpilot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/config"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/agent"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/conversation"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/display"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider/claude"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider/gemini"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/screenshot"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/supervisor"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/toolkit"
	"github.com/kiosk404/screenpilot/pkg/logger"
	"github.com/kiosk404/screenpilot/pkg/utils/safego"
)

// Run assembles the daemon from its completed configuration and blocks
// until interrupt.
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supCfg := &supervisor.Config{
		CoreDir:      cfg.SupervisorOptions.CoreDir,
		WorkDir:      cfg.SupervisorOptions.WorkDir,
		Command:      cfg.SupervisorOptions.Command,
		RunnerArgs:   []string{cfg.SupervisorOptions.RunnerScript},
		StartTimeout: cfg.SupervisorOptions.StartTimeout,
	}
	supCompleted, err := supCfg.Complete()
	if err != nil {
		return err
	}
	sup := supCompleted.New()

	mem := toolkit.NewMemoryStore()
	router := toolkit.NewRouter(sup, mem,
		cfg.SupervisorOptions.CoreDir,
		cfg.SupervisorOptions.WorkDir,
		toolkit.NewPyValidator(cfg.SupervisorOptions.Command))

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("[Server] provider %s ready (model=%s)", client.Provider(), cfg.ProviderOptions.Model)

	store := conversation.NewStore(cfg.ProviderOptions.MaxHistory)

	var observer display.Observer = display.Nop{}
	var board *display.Board
	if cfg.DisplayOptions.Enabled {
		board = display.NewBoard()
		observer = board
		srv := display.NewServer(board, cfg.DisplayOptions.Addr)
		safego.Go(ctx, func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("[Server] dashboard failed: %v", err)
			}
		})
	}

	checkpointer := agent.NewCheckpointer(cfg.AgentOptions.CheckpointFile)

	respLog, err := agent.OpenResponseLog(cfg.AgentOptions.ResponseLogFile, 0)
	if err != nil {
		return err
	}
	defer respLog.Close()

	goal, resume, err := resolveGoal(ctx, cfg, checkpointer, board)
	if err != nil {
		return err
	}

	agentCfg := &agent.Config{
		Client:       client,
		Router:       router,
		Supervisor:   sup,
		Store:        store,
		Memory:       mem,
		Capturer:     screenshot.NewCommandCapturer(cfg.AgentOptions.ScreenshotCommand),
		Observer:     observer,
		Checkpointer: checkpointer,
		ResponseLog:  respLog,
		Goal:         goal,
		WorkDir:      cfg.SupervisorOptions.WorkDir,
		TurnDelay:    cfg.AgentOptions.TurnDelay,
		MaxIdle:      cfg.SupervisorOptions.MaxIdle,
		ForgeEvery:   cfg.AgentOptions.ForgeEvery,
	}
	agentCompleted, err := agentCfg.Complete()
	if err != nil {
		return err
	}

	return agentCompleted.New().Run(ctx, resume)
}

func buildClient(ctx context.Context, cfg *config.Config) (*provider.Client, error) {
	po := cfg.ProviderOptions

	var adapter provider.Adapter
	switch po.Provider {
	case "gemini":
		a, err := gemini.New(ctx, gemini.Config{
			APIKey:            po.APIKey,
			Model:             po.Model,
			BaseURL:           po.BaseURL,
			SystemInstruction: agent.SystemInstruction(),
			MaxOutputTokens:   int32(po.MaxOutputTokens),
		})
		if err != nil {
			return nil, err
		}
		adapter = a
	case "claude":
		adapter = claude.New(claude.Config{
			APIKey:            po.APIKey,
			Model:             po.Model,
			BaseURL:           po.BaseURL,
			SystemInstruction: agent.SystemInstruction(),
			MaxTokens:         int64(po.MaxOutputTokens),
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", po.Provider)
	}

	return provider.NewClient(adapter), nil
}

// resolveGoal decides the mission and whether to resume. A configured
// goal wins; otherwise an existing checkpoint resumes, and failing
// both the dashboard operator is asked.
func resolveGoal(ctx context.Context, cfg *config.Config, cp *agent.Checkpointer, board *display.Board) (string, bool, error) {
	resume := cfg.AgentOptions.Resume
	goal := cfg.AgentOptions.Goal

	if goal != "" {
		return goal, resume, nil
	}

	if cp.Exists() {
		logger.Info("[Server] found checkpoint %s, resuming", cp.Path())
		return "", true, nil
	}

	if board == nil {
		return "", false, fmt.Errorf("no goal configured and no checkpoint to resume; set --agent.goal")
	}

	logger.Info("[Server] waiting for a goal via the dashboard")
	board.RequestInput("Enter the task you want the agent to perform:")
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-ticker.C:
			if text, ok := board.TakeInput(); ok && text != "" {
				return text, resume, nil
			}
		}
	}
}
