package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/pkg/errno"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/conversation"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/display"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/screenshot"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/supervisor"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/toolkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSupervisor satisfies the supervisor interface with no processes.
type stubSupervisor struct{}

func (stubSupervisor) Start(context.Context, string) (bool, string) { return true, "started" }
func (stubSupervisor) Stop(string) bool                             { return false }
func (stubSupervisor) Restart(context.Context, string) (bool, string) {
	return true, "restarted"
}
func (stubSupervisor) IsActive(string) bool { return false }
func (stubSupervisor) CallTool(context.Context, string, string, map[string]interface{}) (string, error) {
	return "", errno.ErrServerNotActive
}
func (stubSupervisor) SweepIdle(time.Duration) []string         { return nil }
func (stubSupervisor) AllTools() []provider.ToolSpec            { return nil }
func (stubSupervisor) ToolsCategorized() supervisor.Catalog     { return supervisor.Catalog{} }
func (stubSupervisor) ActiveServers() []string                  { return nil }
func (stubSupervisor) ShutdownAll()                             {}
func (stubSupervisor) ResolveScript(string) (string, bool)      { return "", false }

// scriptedAdapter replays a fixed sequence of decisions.
type scriptedAdapter struct {
	decisions []*provider.Decision
	idx       int
}

func (s *scriptedAdapter) Name() string                  { return "scripted" }
func (s *scriptedAdapter) SetTools([]provider.ToolSpec)  {}
func (s *scriptedAdapter) GenerateDecision(context.Context, *provider.Request) (*provider.Decision, error) {
	if s.idx >= len(s.decisions) {
		return &provider.Decision{Thought: "done"}, nil
	}
	d := s.decisions[s.idx]
	s.idx++
	return d, nil
}

func testOrchestrator(t *testing.T, decisions []*provider.Decision) *Orchestrator {
	t.Helper()

	mem := toolkit.NewMemoryStore()
	router := newTestRouter(t, mem)
	cfg := &Config{
		Client:     provider.NewClient(&scriptedAdapter{decisions: decisions}),
		Router:     router,
		Supervisor: stubSupervisor{},
		Store:      conversation.NewStore(5),
		Memory:     mem,
		Capturer:   screenshot.Static([]byte("png")),
		Observer:   display.Nop{},
		Goal:       "inspect the desktop",
		WorkDir:    t.TempDir(),
		TurnDelay:  time.Millisecond,
	}
	completed, err := cfg.Complete()
	require.NoError(t, err)
	return completed.New()
}

func newTestRouter(t *testing.T, mem *toolkit.MemoryStore) *toolkit.Router {
	t.Helper()
	return toolkit.NewRouter(stubSupervisor{}, mem, t.TempDir(), t.TempDir(), toolkit.NewNopValidator())
}

func TestTurnExecutesMemoryCall(t *testing.T) {
	o := testOrchestrator(t, []*provider.Decision{
		{
			Thought: "the desktop shows a terminal",
			ToolCall: &provider.ToolCall{
				Group: toolkit.GroupMemory,
				Name:  "set_memory",
				Args: map[string]interface{}{
					"memories": []interface{}{
						map[string]interface{}{"title": "Desktop", "content": "terminal open", "confidence": float64(90)},
					},
				},
			},
		},
		{Thought: "nothing more to record"},
		{Thought: "nothing to clean"},
		{Thought: "waiting"},
	})
	o.Bootstrap(t.Context(), false)

	require.NoError(t, o.runTurn(t.Context()))

	snap := o.cfg.Memory.Snapshot()
	entry, ok := snap["Desktop"]
	require.True(t, ok)
	assert.Equal(t, "terminal open", entry.Content)
	assert.Equal(t, 90, entry.Confidence)
}

func TestLoopGuardBlocksThirdIdenticalCall(t *testing.T) {
	o := testOrchestrator(t, nil)
	o.turnCalls = make(map[string]int)

	call := &conversation.ToolCall{
		Group: toolkit.GroupMemory,
		Name:  "delete_memory",
		Args:  map[string]interface{}{"title": "Ghost"},
	}
	phase := Phase{Name: "act"}

	first := o.executeCall(t.Context(), phase, call)
	second := o.executeCall(t.Context(), phase, call)
	third := o.executeCall(t.Context(), phase, call)

	assert.NotContains(t, first, "Loop warning")
	assert.NotContains(t, second, "Loop warning")
	assert.Contains(t, third, "Loop warning")
}

func TestUnknownGroupSetsForgeHint(t *testing.T) {
	o := testOrchestrator(t, nil)
	o.turnCalls = make(map[string]int)

	out := o.executeCall(t.Context(), Phase{Name: "act"}, &conversation.ToolCall{
		Group: provider.UnknownGroup,
		Name:  "teleport",
	})
	assert.Contains(t, out, "does not belong to any known group")
	assert.NotEmpty(t, o.cfg.Store.GetVar(varForgeHint))
	assert.True(t, o.forgeTriggered(1))
}

func TestRestrictedPhaseBlocksOutOfPhaseGroup(t *testing.T) {
	o := testOrchestrator(t, nil)
	o.turnCalls = make(map[string]int)

	phase := Phase{Name: "observe", Groups: []string{toolkit.GroupMemory}}
	out := o.executeCall(t.Context(), phase, &conversation.ToolCall{
		Group: "browser",
		Name:  "click",
		Args:  map[string]interface{}{"x": float64(10)},
	})

	assert.Contains(t, out, "not available during the observe phase")
	assert.NotContains(t, out, "Error executing tool")

	allowed := o.executeCall(t.Context(), phase, &conversation.ToolCall{
		Group: toolkit.GroupMemory,
		Name:  "delete_memory",
		Args:  map[string]interface{}{"title": "Ghost"},
	})
	assert.NotContains(t, allowed, "not available during")
}

func TestPhaseGroupsExclusion(t *testing.T) {
	o := testOrchestrator(t, nil)

	groups := o.phaseGroups(Phase{Name: "act", Exclude: []string{toolkit.GroupFactory}})
	assert.Contains(t, groups, toolkit.GroupMemory)
	assert.Contains(t, groups, toolkit.GroupCleaner)
	assert.NotContains(t, groups, toolkit.GroupFactory)
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cp := NewCheckpointer(filepath.Join(dir, "checkpoint.json"))

	mem := toolkit.NewMemoryStore()
	mem.SetBatch([]toolkit.MemoryItem{{Title: "Plan", Content: "Step 1", Confidence: 40}})
	store := conversation.NewStore(5)
	store.AddUserMessage("act", "hello")

	require.NoError(t, cp.Save("reach the settings page", mem, store, [][]byte{[]byte("img1")}))

	mem2 := toolkit.NewMemoryStore()
	store2 := conversation.NewStore(5)
	goal, shots, err := cp.Load(mem2, store2)
	require.NoError(t, err)
	assert.Equal(t, "reach the settings page", goal)
	require.Len(t, shots, 1)
	assert.Equal(t, []byte("img1"), shots[0])
	assert.Equal(t, "Step 1", mem2.Snapshot()["Plan"].Content)
	assert.Len(t, store2.Materialize("act", false), 1)
}

func TestCheckpointLegacyDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	legacy := `{
		"memory_manager": {
			"Main Task": {"content": "play the game", "category": "Global"}
		},
		"agent_state": {
			"messages": [
				{"role": "user", "content": "[12:00:00] Next action?"},
				{"role": "assistant", "content": "clicking start"}
			]
		},
		"timestamp": 1700000000.5
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	mem := toolkit.NewMemoryStore()
	store := conversation.NewStore(5)
	_, _, err := NewCheckpointer(path).Load(mem, store)
	require.NoError(t, err)

	assert.Equal(t, "play the game", mem.Snapshot()["Main Task"].Content)
	assert.Len(t, store.Materialize("act", false), 2)
}

func TestCheckpointMissingFile(t *testing.T) {
	cp := NewCheckpointer(filepath.Join(t.TempDir(), "none.json"))

	_, _, err := cp.Load(toolkit.NewMemoryStore(), conversation.NewStore(5))
	assert.ErrorIs(t, err, errno.ErrCheckpointNotFound)
}

func TestResponseLogRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.db")
	log, err := OpenResponseLog(path, 3)
	require.NoError(t, err)
	defer log.Close()

	for _, content := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, log.Append(content))
		time.Sleep(2 * time.Millisecond)
	}

	recent, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "e", recent[0])
	assert.Equal(t, "c", recent[2])
}
