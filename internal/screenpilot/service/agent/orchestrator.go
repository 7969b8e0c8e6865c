package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/gg/gptr"

	"github.com/kiosk404/screenpilot/internal/screenpilot/service/conversation"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/display"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/screenshot"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/supervisor"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/toolkit"
	"github.com/kiosk404/screenpilot/pkg/logger"
	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

const (
	defaultTurnDelay  = 2 * time.Second
	defaultMaxIdle    = 600 * time.Second
	defaultForgeEvery = 5

	// identicalCallLimit short-circuits a call repeated this many
	// times with the same arguments within one turn.
	identicalCallLimit = 3
)

// Config wires the orchestrator's collaborators.
type Config struct {
	Client       *provider.Client
	Router       *toolkit.Router
	Supervisor   supervisor.Supervisor
	Store        *conversation.Store
	Memory       *toolkit.MemoryStore
	Capturer     screenshot.Capturer
	Observer     display.Observer
	Checkpointer *Checkpointer
	ResponseLog  *ResponseLog

	// Goal is the top-level mission.
	Goal string

	// WorkDir is scanned at startup so previously created servers come
	// back up.
	WorkDir string

	TurnDelay  time.Duration
	MaxIdle    time.Duration
	ForgeEvery int
	Phases     []Phase
}

// CompletedConfig is the validated orchestrator configuration.
type CompletedConfig struct {
	*Config
}

func (c *Config) Complete() (CompletedConfig, error) {
	if c.Client == nil || c.Router == nil || c.Supervisor == nil {
		return CompletedConfig{}, fmt.Errorf("agent: client, router and supervisor are required")
	}
	if c.Store == nil || c.Memory == nil {
		return CompletedConfig{}, fmt.Errorf("agent: conversation store and memory store are required")
	}
	if c.Capturer == nil {
		return CompletedConfig{}, fmt.Errorf("agent: screenshot capturer is required")
	}
	if c.Observer == nil {
		c.Observer = display.Nop{}
	}
	if c.TurnDelay <= 0 {
		c.TurnDelay = defaultTurnDelay
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = defaultMaxIdle
	}
	if c.ForgeEvery <= 0 {
		c.ForgeEvery = defaultForgeEvery
	}
	if len(c.Phases) == 0 {
		c.Phases = defaultPhases()
	}
	return CompletedConfig{c}, nil
}

func (c CompletedConfig) New() *Orchestrator {
	return &Orchestrator{cfg: c.Config}
}

// Orchestrator drives the turn loop: sweep, screenshot, phases,
// checkpoint, delay.
type Orchestrator struct {
	cfg *Config

	goal        string
	recentShots [][]byte

	// turnCalls counts identical calls within the current turn.
	turnCalls map[string]int
}

// Bootstrap prepares the first turn: optionally resumes from a
// checkpoint, seeds the goal memory, and restarts every workspace
// server that survived the previous run.
func (o *Orchestrator) Bootstrap(ctx context.Context, resume bool) {
	o.goal = o.cfg.Goal

	if resume && o.cfg.Checkpointer != nil {
		goal, shots, err := o.cfg.Checkpointer.Load(o.cfg.Memory, o.cfg.Store)
		if err != nil {
			logger.Warn("[Agent] could not resume from checkpoint: %v", err)
		} else {
			logger.Info("[Agent] resumed from checkpoint %s", o.cfg.Checkpointer.Path())
			if goal != "" {
				o.goal = goal
			}
			o.recentShots = shots
		}
	}

	if o.goal != "" && o.cfg.Memory.Len() == 0 {
		o.cfg.Memory.SetBatch([]toolkit.MemoryItem{{Title: "Main Task", Content: o.goal, Confidence: 100}})
	}

	for _, name := range o.workspaceServers() {
		if ok, msg := o.cfg.Supervisor.Start(ctx, name); !ok {
			logger.Warn("[Agent] workspace server %q did not start: %s", name, msg)
		}
	}

	o.cfg.Observer.Push(display.Update{
		Mission:       gptr.Of(o.goal),
		Memories:      o.memoriesView(),
		Tools:         o.toolsView(),
		ActiveServers: o.cfg.Supervisor.ActiveServers(),
	})
	logger.Info("[Agent] initialized, goal: %s", o.goal)
}

func (o *Orchestrator) workspaceServers() []string {
	entries, err := os.ReadDir(o.cfg.WorkDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".py") {
			names = append(names, strings.TrimSuffix(e.Name(), ".py"))
		}
	}
	return names
}

// Run executes turns until the context is cancelled. A provider
// failure that exhausted its retries does not exit: the state is
// checkpointed, the error is surfaced on the dashboard, and the agent
// parks so an operator can inspect it.
func (o *Orchestrator) Run(ctx context.Context, resume bool) error {
	o.Bootstrap(ctx, resume)
	defer o.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := o.runTurn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var llmErr *provider.LLMError
			if errors.As(err, &llmErr) {
				logger.Error("[Agent] stopping on provider failure: %v", err)
				o.saveCheckpoint()
				o.cfg.Observer.Push(display.Update{Error: gptr.Of(err.Error())})
				<-ctx.Done()
				return nil
			}
			return err
		}

		o.saveCheckpoint()

		select {
		case <-time.After(o.cfg.TurnDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.saveCheckpoint()
	o.cfg.Supervisor.ShutdownAll()
	logger.Info("[Agent] stopped")
}

func (o *Orchestrator) saveCheckpoint() {
	if o.cfg.Checkpointer == nil {
		return
	}
	if err := o.cfg.Checkpointer.Save(o.goal, o.cfg.Memory, o.cfg.Store, o.recentShots); err != nil {
		logger.Error("[Agent] checkpoint save failed: %v", err)
	}
}

func (o *Orchestrator) runTurn(ctx context.Context) error {
	turn := o.cfg.Store.BumpTurn()
	o.turnCalls = make(map[string]int)
	logger.Info("[Agent] --- turn %d ---", turn)

	if stopped := o.cfg.Supervisor.SweepIdle(o.cfg.MaxIdle); len(stopped) > 0 {
		logger.Info("[Agent] idle sweep stopped: %s", strings.Join(stopped, ", "))
	}

	img, _, err := o.cfg.Capturer.Capture(ctx)
	if err != nil {
		logger.Warn("[Agent] screenshot failed, continuing without image: %v", err)
		img = nil
	}
	if img != nil {
		o.recentShots = append(o.recentShots, img)
		if len(o.recentShots) > maxCheckpointScreenshots {
			o.recentShots = o.recentShots[len(o.recentShots)-maxCheckpointScreenshots:]
		}
		o.cfg.Observer.Push(display.Update{
			Screenshot: gptr.Of(base64.StdEncoding.EncodeToString(img)),
			Turn:       gptr.Of(turn),
		})
	}

	for _, phase := range o.cfg.Phases {
		if phase.Conditional && !o.forgeTriggered(turn) {
			continue
		}
		if phase.Conditional {
			o.cfg.Store.SetVar(varForgeHint, "")
		}
		if err := o.runPhase(ctx, phase, img); err != nil {
			return err
		}
	}

	o.cfg.Observer.Push(display.Update{
		Memories:      o.memoriesView(),
		Tools:         o.toolsView(),
		ActiveServers: o.cfg.Supervisor.ActiveServers(),
		Error:         gptr.Of(""),
	})
	return nil
}

func (o *Orchestrator) forgeTriggered(turn int) bool {
	if o.cfg.Store.GetVar(varForgeHint) != "" {
		return true
	}
	return turn%o.cfg.ForgeEvery == 0
}

func (o *Orchestrator) runPhase(ctx context.Context, phase Phase, img []byte) error {
	catalog := o.cfg.Router.Catalog(o.phaseGroups(phase))
	o.cfg.Client.SetTools(catalog.All())
	o.cfg.Observer.Push(display.Update{Phase: gptr.Of(phase.Name)})

	for step := 0; step < phase.MaxSteps; step++ {
		timeStr := time.Now().Format("2006-01-02 15:04:05")
		req := &provider.Request{
			Prompt:  contextPrompt(o.goal, phase.Instruction, describeCatalog(catalog), o.cfg.Memory.Render(), timeStr),
			History: toHistory(o.cfg.Store.Materialize(phase.Name, phase.UseGlobal)),
		}
		if img != nil && step == 0 {
			req.Images = [][]byte{img}
		}

		decision, err := o.cfg.Client.GenerateDecision(ctx, req)
		if err != nil {
			return err
		}
		o.logResponse(decision)

		o.cfg.Store.AddUserMessage(phase.Name, historyPrompt(timeStr))
		call := toConversationCall(decision.ToolCall)
		callID := o.cfg.Store.AddToolCall(phase.Name, decision.Thought, call)

		if decision.Thought != "" {
			logger.InfoX("Agent", "[%s] thought: %s", phase.Name, decision.Thought)
			o.cfg.Observer.Push(display.Update{Thought: gptr.Of(decision.Thought)})
		}

		if call == nil {
			return nil
		}

		result := o.executeCall(ctx, phase, call)
		o.cfg.Store.AddToolResult(phase.Name, callID, call.Group+"."+call.Name, result)

		o.cfg.Observer.Push(display.Update{
			ToolLog: gptr.Of(fmt.Sprintf("[%s] %s.%s\nArgs: %v\nResult: %s",
				time.Now().Format("15:04:05"), call.Group, call.Name, call.Args, result)),
		})
	}
	return nil
}

func (o *Orchestrator) phaseGroups(phase Phase) []string {
	if phase.Groups != nil {
		return phase.Groups
	}

	groups := []string{toolkit.GroupMemory, toolkit.GroupFactory, toolkit.GroupCleaner}
	groups = append(groups, o.cfg.Supervisor.ActiveServers()...)

	if len(phase.Exclude) == 0 {
		return groups
	}
	deny := make(map[string]bool, len(phase.Exclude))
	for _, g := range phase.Exclude {
		deny[g] = true
	}
	kept := groups[:0]
	for _, g := range groups {
		if !deny[g] {
			kept = append(kept, g)
		}
	}
	return kept
}

func (o *Orchestrator) executeCall(ctx context.Context, phase Phase, call *conversation.ToolCall) string {
	if call.Group == provider.UnknownGroup {
		o.cfg.Store.SetVar(varForgeHint, fmt.Sprintf("the model asked for missing tool %q", call.Name))
		return fmt.Sprintf("Error: tool '%s' does not belong to any known group. If the capability is missing, it must be created first.", call.Name)
	}

	allowed := false
	for _, g := range o.phaseGroups(phase) {
		if g == call.Group {
			allowed = true
			break
		}
	}
	if !allowed {
		logger.Warn("[Agent] [%s] blocked call to out-of-phase group %q", phase.Name, call.Group)
		return fmt.Sprintf("Error: tool group '%s' is not available during the %s phase.", call.Group, phase.Name)
	}

	key := o.callKey(call)
	o.turnCalls[key]++
	if o.turnCalls[key] >= identicalCallLimit {
		logger.Warn("[Agent] loop guard tripped for %s.%s", call.Group, call.Name)
		return fmt.Sprintf("Loop warning: '%s.%s' was already called %d times this turn with identical arguments and was not executed again. Change your approach.",
			call.Group, call.Name, o.turnCalls[key]-1)
	}

	logger.DebugX("Agent", "[%s] executing %s.%s %v", phase.Name, call.Group, call.Name, call.Args)
	result, err := o.cfg.Router.Dispatch(ctx, call.Group, call.Name, call.Args)
	if err != nil {
		logger.Error("[Agent] tool %s.%s failed: %v", call.Group, call.Name, err)
		return fmt.Sprintf("Error executing tool: %v", err)
	}
	return result
}

func (o *Orchestrator) callKey(call *conversation.ToolCall) string {
	args, _ := json.MarshalString(call.Args)
	return call.Group + "." + call.Name + ":" + args
}

func (o *Orchestrator) logResponse(d *provider.Decision) {
	if o.cfg.ResponseLog == nil {
		return
	}
	content := d.Thought
	if d.ToolCall != nil {
		args, _ := json.MarshalString(d.ToolCall.Args)
		content += fmt.Sprintf("\nFunction Call: %s.%s, Args: %s", d.ToolCall.Group, d.ToolCall.Name, args)
	}
	if err := o.cfg.ResponseLog.Append(content); err != nil {
		logger.Warn("[Agent] response log append failed: %v", err)
	}
}

func (o *Orchestrator) memoriesView() map[string]string {
	view := make(map[string]string)
	for title, entry := range o.cfg.Memory.Snapshot() {
		view[title] = entry.Content
	}
	return view
}

func (o *Orchestrator) toolsView() []string {
	all := o.cfg.Router.Catalog(nil).All()
	labels := make([]string, 0, len(all))
	for _, spec := range all {
		labels = append(labels, spec.Label())
	}
	return labels
}

func toHistory(msgs []*conversation.Message) []provider.HistoryMessage {
	out := make([]provider.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		hm := provider.HistoryMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
			CreatedAt:  m.CreatedAt,
		}
		if m.ToolCall != nil {
			hm.ToolCall = &provider.ToolCall{
				ID:    m.ToolCall.ID,
				Group: m.ToolCall.Group,
				Name:  m.ToolCall.Name,
				Args:  m.ToolCall.Args,
			}
		}
		out = append(out, hm)
	}
	return out
}

func toConversationCall(call *provider.ToolCall) *conversation.ToolCall {
	if call == nil {
		return nil
	}
	return &conversation.ToolCall{
		ID:    call.ID,
		Group: call.Group,
		Name:  call.Name,
		Args:  call.Args,
	}
}
